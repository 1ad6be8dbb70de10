package infra

import (
	"log/slog"

	"github.com/mlmnft/walletpay/internal/config"
	"github.com/mlmnft/walletpay/internal/provider"
)

// Wallets builds the provider environment the bridge can discover. A JSON-RPC
// wallet endpoint wins; otherwise development gets a simulated wallet and
// other environments get none.
func Wallets(cfg config.Config, logger *slog.Logger) provider.Environment {
	var env provider.Environment
	if cfg.WalletRPCURL != "" {
		env = append(env, provider.NewRPC(cfg.WalletRPCURL,
			provider.WithFlags(provider.FlagsFor(provider.Vendor(cfg.WalletVendor))),
			provider.WithLogger(logger),
		))
	}
	if cfg.WalletSimulated || (len(env) == 0 && cfg.IsDev()) {
		env = append(env, provider.NewSimulated(provider.SimKnownChains(cfg.TargetChainID)))
	}
	return env
}
