package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mlmnft/walletpay/internal/store"
)

// TokenLocal holds the backend token of the signed-in user.
const TokenLocal = "backend_token"

// SignedIn rejects requests while no backend token is stored.
func SignedIn(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := st.Token(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusServiceUnavailable, "session store unavailable")
		}
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "sign in required")
		}
		c.Locals(TokenLocal, token)
		return c.Next()
	}
}
