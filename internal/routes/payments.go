package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mlmnft/walletpay/internal/config"
	"github.com/mlmnft/walletpay/internal/journal"
	"github.com/mlmnft/walletpay/internal/middleware"
	"github.com/mlmnft/walletpay/internal/orchestrator"
)

// RegisterPaymentRoutes wires payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, orch *orchestrator.Orchestrator, cfg config.Config, idempotent, limit fiber.Handler) {
	r.Post("/payments", limit, idempotent, func(c *fiber.Ctx) error {
		if cfg.TreasuryAddress == "" {
			return fiber.NewError(http.StatusServiceUnavailable, "treasury address not configured")
		}
		var req orchestrator.Request
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		attempt, err := orch.Pay(c.UserContext(), req)
		switch {
		case errors.Is(err, orchestrator.ErrAttemptInProgress):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, orchestrator.ErrInvalidRequest):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		c.Locals(middleware.AttemptIDLocal, attempt.ID)

		status := http.StatusCreated
		if err != nil {
			status = statusFor(attempt.ErrorKind)
		}
		return c.Status(status).JSON(attempt)
	})

	r.Get("/payments/tx/:hash", func(c *fiber.Ctx) error {
		st, err := orch.TransactionStatus(c.UserContext(), c.Params("hash"))
		if err != nil {
			return problem(c, err)
		}
		return c.JSON(st)
	})

	r.Get("/payments/:id", func(c *fiber.Ctx) error {
		rec, steps, err := orch.FindAttempt(c.UserContext(), c.Params("id"))
		if errors.Is(err, journal.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "payment attempt not found")
		}
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"attempt": rec, "history": steps})
	})
}
