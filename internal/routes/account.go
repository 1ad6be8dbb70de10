package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mlmnft/walletpay/internal/session"
	"github.com/mlmnft/walletpay/internal/store"
)

// RegisterAccountRoutes wires sign-in state shared with the backend.
func RegisterAccountRoutes(r fiber.Router, st store.Store, sessions *session.Manager) {
	r.Put("/auth/session", func(c *fiber.Ctx) error {
		var req struct {
			Token string          `json:"token"`
			User  json.RawMessage `json:"user"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if strings.TrimSpace(req.Token) == "" {
			return fiber.NewError(http.StatusBadRequest, "token is required")
		}
		if len(req.User) == 0 || string(req.User) == "null" {
			req.User = json.RawMessage(`{}`)
		}
		if err := st.SaveSession(c.UserContext(), req.Token, req.User); err != nil {
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		}
		return c.SendStatus(http.StatusNoContent)
	})

	// Logout clears all client state and drops the wallet session.
	r.Delete("/auth/session", func(c *fiber.Ctx) error {
		if err := st.Clear(c.UserContext()); err != nil {
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		}
		sessions.Disconnect()
		return c.SendStatus(http.StatusNoContent)
	})
}

// RegisterMeRoute exposes the cached user profile.
func RegisterMeRoute(r fiber.Router, st store.Store) {
	r.Get("/me", func(c *fiber.Ctx) error {
		user, err := st.User(c.UserContext())
		if errors.Is(err, store.ErrNoUser) {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		if err != nil {
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		}
		return sendRaw(c, user)
	})
}
