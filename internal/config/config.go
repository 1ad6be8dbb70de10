package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/payment"
)

const (
	defaultAppName          = "walletpay"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultConnectTimeout   = 30 * time.Second
	defaultPriceSource      = "static"
	defaultPriceUSDPerUnit  = "600"
	defaultPaymentRateLimit = 5
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	APIBaseURL             string
	WalletRPCURL           string
	WalletVendor           string
	WalletSimulated        bool
	WalletConnectProjectID string
	TreasuryAddress        string
	TargetChainID          uint64

	ConnectTimeout           time.Duration
	ConfirmationTimeout      time.Duration
	ConfirmationPollInterval time.Duration

	PriceSource      string
	PriceUSDPerUnit  decimal.Decimal
	PriceFeedURL     string
	PaymentRateLimit int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:                  getEnv("APP_NAME", defaultAppName),
		AppEnv:                   getEnv("APP_ENV", defaultAppEnv),
		Port:                     getEnv("PORT", defaultPort),
		LogLevel:                 strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		ShutdownPeriod:           defaultShutdownDelay,
		IdempotencyTTL:           defaultIdempotencyTTL,
		APIBaseURL:               strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		WalletRPCURL:             os.Getenv("WALLET_RPC_URL"),
		WalletVendor:             strings.ToLower(getEnv("WALLET_VENDOR", "metamask")),
		WalletConnectProjectID:   os.Getenv("WALLET_CONNECT_PROJECT_ID"),
		TreasuryAddress:          os.Getenv("TREASURY_ADDRESS"),
		TargetChainID:            chain.BSCMainnet,
		ConnectTimeout:           defaultConnectTimeout,
		ConfirmationTimeout:      payment.DefaultConfirmationTimeout,
		ConfirmationPollInterval: payment.DefaultPollInterval,
		PriceSource:              strings.ToLower(getEnv("PRICE_SOURCE", defaultPriceSource)),
		PriceFeedURL:             os.Getenv("PRICE_FEED_URL"),
		PaymentRateLimit:         defaultPaymentRateLimit,
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CONNECT_TIMEOUT", &cfg.ConnectTimeout},
		{"CONFIRMATION_TIMEOUT", &cfg.ConfirmationTimeout},
		{"CONFIRMATION_POLL_INTERVAL", &cfg.ConfirmationPollInterval},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			if parsed <= 0 {
				return Config{}, fmt.Errorf("%s must be positive", d.key)
			}
			*d.dst = parsed
		}
	}

	if v := os.Getenv("TARGET_CHAIN_ID"); v != "" {
		id, err := chain.ParseHexID(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TARGET_CHAIN_ID: %w", err)
		}
		cfg.TargetChainID = id
	}

	if v := os.Getenv("WALLET_SIMULATED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WALLET_SIMULATED: %w", err)
		}
		cfg.WalletSimulated = b
	}

	rate, err := decimal.NewFromString(getEnv("PRICE_USD_PER_UNIT", defaultPriceUSDPerUnit))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PRICE_USD_PER_UNIT: %w", err)
	}
	if !rate.IsPositive() {
		return Config{}, fmt.Errorf("PRICE_USD_PER_UNIT must be positive")
	}
	cfg.PriceUSDPerUnit = rate

	switch cfg.PriceSource {
	case "static":
	case "http":
		if cfg.PriceFeedURL == "" {
			return Config{}, fmt.Errorf("PRICE_FEED_URL must be set when PRICE_SOURCE=http")
		}
	default:
		return Config{}, fmt.Errorf("unknown PRICE_SOURCE %q", cfg.PriceSource)
	}

	if v := os.Getenv("PAYMENT_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAYMENT_RATE_LIMIT: %w", err)
		}
		cfg.PaymentRateLimit = n
	}

	if cfg.TreasuryAddress != "" {
		addr, err := chain.NormalizeAddress(cfg.TreasuryAddress)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TREASURY_ADDRESS: %w", err)
		}
		cfg.TreasuryAddress = addr
	}

	if !cfg.IsDev() {
		required := []struct{ key, value string }{
			{"DATABASE_URL", cfg.DatabaseURL},
			{"REDIS_URL", cfg.RedisURL},
			{"API_BASE_URL", cfg.APIBaseURL},
			{"TREASURY_ADDRESS", cfg.TreasuryAddress},
		}
		for _, r := range required {
			if r.value == "" {
				return Config{}, fmt.Errorf("%s must be set when APP_ENV=%s", r.key, cfg.AppEnv)
			}
		}
		if cfg.WalletSimulated {
			return Config{}, fmt.Errorf("WALLET_SIMULATED is not allowed when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
