package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/mlmnft/walletpay/internal/backend"
	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/session"
	"github.com/mlmnft/walletpay/internal/store"
)

// RegisterBalanceRoutes wires the backend wallet endpoints.
func RegisterBalanceRoutes(r fiber.Router, api *backend.Client, st store.Store, sessions *session.Manager, idempotent fiber.Handler, logger *slog.Logger) {
	r.Get("/wallet/balance", func(c *fiber.Ctx) error {
		bal, err := api.Balance(c.UserContext())
		if err == nil {
			if cerr := st.SetDemoBalance(c.UserContext(), bal.Balance); cerr != nil {
				logger.Warn("caching balance failed", slog.Any("error", cerr))
			}
			return c.JSON(fiber.Map{"balance": bal.Balance, "currency": bal.Currency, "authoritative": true})
		}

		demo, ok, derr := st.DemoBalance(c.UserContext())
		if derr != nil || !ok {
			return backendProblem(c, err)
		}
		logger.Warn("serving cached balance", slog.Any("error", err))
		return c.JSON(fiber.Map{"balance": demo, "authoritative": false})
	})

	r.Post("/wallet/withdraw", idempotent, func(c *fiber.Ctx) error {
		var req struct {
			Amount        decimal.Decimal `json:"amount"`
			WalletAddress string          `json:"walletAddress"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if !req.Amount.IsPositive() {
			return fiber.NewError(http.StatusBadRequest, "amount must be positive")
		}
		address := req.WalletAddress
		if address == "" {
			address = sessions.Snapshot().Address
		}
		if address == "" {
			return fiber.NewError(http.StatusBadRequest, "walletAddress is required when no wallet is connected")
		}
		normalized, err := chain.NormalizeAddress(address)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		res, err := api.Withdraw(c.UserContext(), backend.WithdrawRequest{Amount: req.Amount, WalletAddress: normalized})
		if err != nil {
			return backendProblem(c, err)
		}
		return sendRaw(c, res)
	})

	r.Post("/wallet/activate", idempotent, func(c *fiber.Ctx) error {
		body := json.RawMessage(c.Body())
		if len(body) == 0 {
			body = json.RawMessage(`{}`)
		}
		if !json.Valid(body) {
			return fiber.NewError(http.StatusBadRequest, "body must be JSON")
		}
		res, err := api.Activate(c.UserContext(), body)
		if err != nil {
			return backendProblem(c, err)
		}
		return sendRaw(c, res)
	})
}

func sendRaw(c *fiber.Ctx, raw json.RawMessage) error {
	if len(raw) == 0 {
		return c.SendStatus(http.StatusNoContent)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}
