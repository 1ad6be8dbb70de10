package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mlmnft/walletpay/internal/session"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints.
func RegisterHealthRoutes(r fiber.Router, d Deps, sessions *session.Manager) {
	r.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "disabled"
		redisStatus := "disabled"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		status := http.StatusOK
		if (d.DB != nil && dbStatus != "ok") || (d.Cache != nil && redisStatus != "ok") {
			status = http.StatusServiceUnavailable
		}

		probe := sessions.Probe()
		return c.Status(status).JSON(fiber.Map{
			"status": fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"wallet": fiber.Map{
				"installed": probe.Installed,
				"vendor":    probe.Vendor,
				"connected": sessions.Snapshot().Connected,
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
