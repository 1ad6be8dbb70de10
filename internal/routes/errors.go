package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mlmnft/walletpay/internal/backend"
	"github.com/mlmnft/walletpay/internal/notification"
	"github.com/mlmnft/walletpay/internal/orchestrator"
)

func statusFor(kind orchestrator.Kind) int {
	switch kind {
	case orchestrator.KindProviderUnavailable, orchestrator.KindBackendUnreachable:
		return http.StatusServiceUnavailable
	case orchestrator.KindUserRejected, orchestrator.KindWrongNetwork:
		return http.StatusConflict
	case orchestrator.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case orchestrator.KindConfirmationTimeout:
		return http.StatusAccepted
	case orchestrator.KindConfirmationFailed:
		return http.StatusUnprocessableEntity
	case "":
		return http.StatusOK
	default:
		return http.StatusBadGateway
	}
}

// problem writes a classified error with its user-facing text.
func problem(c *fiber.Ctx, err error) error {
	kind := orchestrator.Classify(err)
	return c.Status(statusFor(kind)).JSON(fiber.Map{
		"error":   kind,
		"message": notification.Describe(string(kind)),
		"detail":  err.Error(),
	})
}

// backendProblem passes backend client errors (4xx) through and classifies the rest.
func backendProblem(c *fiber.Ctx, err error) error {
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		return fiber.NewError(http.StatusUnauthorized, "sign in required")
	case errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError:
		return fiber.NewError(statusErr.Code, statusErr.Body)
	default:
		return problem(c, err)
	}
}
