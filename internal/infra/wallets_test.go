package infra

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlmnft/walletpay/internal/config"
	"github.com/mlmnft/walletpay/internal/logging/logtest"
	"github.com/mlmnft/walletpay/internal/provider"
)

func TestWallets(t *testing.T) {
	logger := logtest.New(t)

	env := Wallets(config.Config{AppEnv: "development"}, logger)
	require.Len(t, env, 1)
	require.IsType(t, &provider.Simulated{}, env[0])

	env = Wallets(config.Config{AppEnv: "production"}, logger)
	require.Empty(t, env)
	require.False(t, provider.Probe(env).Installed)

	env = Wallets(config.Config{AppEnv: "production", WalletRPCURL: "http://127.0.0.1:8545", WalletVendor: "trust"}, logger)
	require.Len(t, env, 1)
	require.Equal(t, provider.VendorTrust, provider.Probe(env).Vendor)
}
