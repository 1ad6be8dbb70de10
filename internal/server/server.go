package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mlmnft/walletpay/internal/config"
	"github.com/mlmnft/walletpay/internal/orchestrator"
	"github.com/mlmnft/walletpay/internal/provider"
	"github.com/mlmnft/walletpay/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app  *fiber.App
	cfg  config.Config
	orch *orchestrator.Orchestrator
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, wallets provider.Environment, logger *slog.Logger) (*Server, error) {
	// Payments block until confirmation, so writes get the confirmation
	// budget on top of the usual request time.
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30*time.Second + cfg.ConnectTimeout + cfg.ConfirmationTimeout,
	})

	orch, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Wallets: wallets, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, orch: orch}, nil
}

// App exposes the Fiber application for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests and waits for background balance refreshes.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		s.orch.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
