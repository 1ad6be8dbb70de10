package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyPrefix       = "walletpay:idempotency:v1:"
	inProgressMarker        = "__in_progress__"
	idempotencyStoreTimeout = 2 * time.Second
)

type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
}

// Idempotency makes a route replay its first response for every later request
// with the same Idempotency-Key. Responses are kept in Redis for ttl. A
// handler error releases the key so the request can be retried.
func Idempotency(cache redis.Cmdable, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		cacheKey := idempotencyPrefix + c.Method() + ":" + c.Path() + ":" + key
		log := logger.With(slog.String("idempotency_key", key))

		reserved, err := reserve(cache, cacheKey, ttl)
		if err != nil {
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return replay(c, cache, cacheKey, log)
		}

		if err := c.Next(); err != nil {
			release(cache, cacheKey)
			return err
		}

		stored := storedResponse{
			Status:      c.Response().StatusCode(),
			Body:        string(c.Response().Body()),
			ContentType: string(c.Response().Header.ContentType()),
		}
		if err := persist(cache, cacheKey, stored, ttl); err != nil {
			// The request already ran; leave the marker so it cannot run again.
			log.Error("failed to persist idempotent response", slog.Any("error", err))
		}
		return nil
	}
}

func reserve(cache redis.Cmdable, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()
	return cache.SetNX(ctx, key, inProgressMarker, ttl).Result()
}

func replay(c *fiber.Ctx, cache redis.Cmdable, key string, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()

	cached, err := cache.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// Expired between SETNX and GET.
		return fiber.NewError(fiber.StatusConflict, "duplicate request, retry")
	case err != nil:
		log.Error("idempotency lookup failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	case cached == inProgressMarker:
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		log.Warn("failed to decode stored idempotent response", slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	c.Set(idempotencyReplayHeader, "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

func persist(cache redis.Cmdable, key string, stored storedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()
	return cache.Set(ctx, key, payload, ttl).Err()
}

func release(cache redis.Cmdable, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()
	cache.Del(ctx, key) // best effort
}
