package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mlmnft/walletpay/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *atomic.Int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls atomic.Int32
	app := fiber.New()
	app.Post("/payments", Idempotency(cache, time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		n := calls.Add(1)
		if c.Query("fail") != "" {
			return fiber.NewError(fiber.StatusConflict, "busy")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": n})
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, target, key string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, target, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body), resp.Header.Get(idempotencyReplayHeader)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, calls := setupTestApp(t)

	status, _, _ := post(t, app, "/payments", "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if calls.Load() != 0 {
		t.Fatalf("handler ran without a key")
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status, payload, replayed := post(t, app, "/payments", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}
	if replayed != "" {
		t.Fatalf("first response marked as replay")
	}

	status, cached, replayed := post(t, app, "/payments", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cached != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cached)
	}
	if replayed != "true" {
		t.Fatalf("expected replay header")
	}
	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times", calls.Load())
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyReleasesKeyOnError(t *testing.T) {
	app, calls := setupTestApp(t)

	if status, _, _ := post(t, app, "/payments?fail=1", "k1"); status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
	if status, _, _ := post(t, app, "/payments", "k1"); status != fiber.StatusCreated {
		t.Fatalf("expected retry to run, got %d", status)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 handler runs, got %d", calls.Load())
	}
}
