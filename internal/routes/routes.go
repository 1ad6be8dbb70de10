package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mlmnft/walletpay/internal/backend"
	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/config"
	"github.com/mlmnft/walletpay/internal/journal"
	"github.com/mlmnft/walletpay/internal/logging"
	"github.com/mlmnft/walletpay/internal/middleware"
	"github.com/mlmnft/walletpay/internal/network"
	"github.com/mlmnft/walletpay/internal/notification"
	"github.com/mlmnft/walletpay/internal/orchestrator"
	"github.com/mlmnft/walletpay/internal/payment"
	"github.com/mlmnft/walletpay/internal/price"
	"github.com/mlmnft/walletpay/internal/provider"
	"github.com/mlmnft/walletpay/internal/session"
	"github.com/mlmnft/walletpay/internal/store"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Wallets provider.Environment
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes. It returns the
// orchestrator so the caller can drain its background work on shutdown.
func Setup(app *fiber.App, d Deps) (*orchestrator.Orchestrator, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(logging.Component(d.Logger, "http")))

	chains := chain.Default()

	var clientState store.Store
	var cache redis.Cmdable
	if d.Cache != nil {
		clientState = store.NewRedis(d.Cache)
		cache = d.Cache
	} else {
		clientState = store.NewMemory()
	}

	var attempts journal.Journal
	if d.DB != nil {
		pg := journal.NewPostgresJournal(d.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure journal schema: %w", err)
		}
		attempts = pg
	} else {
		attempts = journal.NewInMemory()
	}

	var prices price.Source = price.Static{Rate: d.Cfg.PriceUSDPerUnit}
	if d.Cfg.PriceSource == "http" {
		prices = price.NewHTTPFeed(d.Cfg.PriceFeedURL)
	}

	api := backend.NewClient(d.Cfg.APIBaseURL, clientState)
	sessions := session.NewManager(d.Wallets, d.Cfg.ConnectTimeout, logging.Component(d.Logger, "session"))
	guard := network.NewGuard(sessions, chains, logging.Component(d.Logger, "network"))
	paymentLogger := logging.Component(d.Logger, "payment")
	orch := orchestrator.New(orchestrator.Config{
		ChainID:             d.Cfg.TargetChainID,
		Treasury:            d.Cfg.TreasuryAddress,
		ConfirmationTimeout: d.Cfg.ConfirmationTimeout,
	}, orchestrator.Deps{
		Sessions:   sessions,
		Guard:      guard,
		Submitter:  payment.NewSubmitter(sessions, chains, paymentLogger),
		Waiter:     payment.NewWaiter(sessions, d.Cfg.ConfirmationPollInterval, paymentLogger),
		Reconciler: payment.NewReconciler(api, paymentLogger),
		Prices:     prices,
		Chains:     chains,
		Journal:    attempts,
		Balances:   api,
		Cache:      clientState,
		Notifier:   notification.NewLoggerNotifier(d.Logger),
		Logger:     logging.Component(d.Logger, "orchestrator"),
	})

	RegisterHealthRoutes(app, d, sessions)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	RegisterHealthRoutes(v1, d, sessions)

	// Public routes
	RegisterWalletRoutes(v1, sessions, guard, d.Cfg)
	RegisterAccountRoutes(v1, clientState, sessions)

	// Money-moving routes replay their first response per Idempotency-Key.
	var idempotent fiber.Handler = func(c *fiber.Ctx) error { return c.Next() }
	if cache != nil {
		idempotent = middleware.Idempotency(cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	// Protected routes
	protected := v1.Group("", middleware.SignedIn(clientState))
	RegisterMeRoute(protected, clientState)
	RegisterBalanceRoutes(protected, api, clientState, sessions, idempotent, d.Logger)
	RegisterPaymentRoutes(protected, orch, d.Cfg, idempotent, middleware.RateLimit(cache, "payment", d.Cfg.PaymentRateLimit))

	return orch, nil
}
