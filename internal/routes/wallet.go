package routes

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/config"
	"github.com/mlmnft/walletpay/internal/network"
	"github.com/mlmnft/walletpay/internal/session"
)

// RegisterWalletRoutes wires wallet connection and network endpoints.
func RegisterWalletRoutes(r fiber.Router, sessions *session.Manager, guard *network.Guard, cfg config.Config) {
	r.Get("/wallet/probe", func(c *fiber.Ctx) error {
		probe := sessions.Probe()
		return c.JSON(fiber.Map{
			"installed":              probe.Installed,
			"vendor":                 probe.Vendor,
			"targetChainId":          chain.HexID(cfg.TargetChainID),
			"walletConnectProjectId": cfg.WalletConnectProjectID,
		})
	})

	r.Get("/wallet/session", func(c *fiber.Ctx) error {
		return c.JSON(sessions.Snapshot())
	})

	r.Post("/wallet/connect", func(c *fiber.Ctx) error {
		s, err := sessions.Connect(c.UserContext())
		if err != nil {
			return problem(c, err)
		}
		return c.JSON(s)
	})

	r.Post("/wallet/disconnect", func(c *fiber.Ctx) error {
		sessions.Disconnect()
		return c.JSON(sessions.Snapshot())
	})

	r.Post("/wallet/network", func(c *fiber.Ctx) error {
		var req struct {
			ChainID string `json:"chainId"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(http.StatusBadRequest, err.Error())
			}
		}
		target := cfg.TargetChainID
		if strings.TrimSpace(req.ChainID) != "" {
			id, err := chain.ParseHexID(req.ChainID)
			if err != nil {
				return fiber.NewError(http.StatusBadRequest, err.Error())
			}
			target = id
		}
		if err := guard.EnsureChain(c.UserContext(), target); err != nil {
			return problem(c, err)
		}
		return c.JSON(sessions.Snapshot())
	})
}
