package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/logging"
	"github.com/mlmnft/walletpay/internal/logging/logtest"
	"github.com/mlmnft/walletpay/internal/provider"
	"github.com/mlmnft/walletpay/internal/session"
)

func connected(t *testing.T, w *provider.Simulated) (*session.Manager, *Guard) {
	t.Helper()
	sessions := session.NewManager(provider.Environment{w}, time.Second, logging.Discard())
	_, err := sessions.Connect(context.Background())
	require.NoError(t, err)
	return sessions, NewGuard(sessions, chain.Default(), logtest.New(t))
}

func methods(calls []provider.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Method)
	}
	return out
}

func TestEnsureChainAlreadyOnChain(t *testing.T) {
	w := provider.NewSimulated(provider.SimChain(chain.BSCMainnet))
	_, guard := connected(t, w)
	before := len(w.Calls())

	require.NoError(t, guard.EnsureChain(context.Background(), chain.BSCMainnet))
	require.Len(t, w.Calls(), before)
}

func TestEnsureChainSwitchesKnownChain(t *testing.T) {
	w := provider.NewSimulated(provider.SimChain(chain.BSCTestnet), provider.SimKnownChains(chain.BSCMainnet))
	sessions, guard := connected(t, w)

	require.NoError(t, guard.EnsureChain(context.Background(), chain.BSCMainnet))
	require.Equal(t, 1, w.CallCount("wallet_switchEthereumChain"))
	require.Zero(t, w.CallCount("wallet_addEthereumChain"))
	require.Equal(t, chain.BSCMainnet, sessions.Snapshot().ChainID)
}

func TestEnsureChainAddsUnknownChainThenSwitchesOnce(t *testing.T) {
	w := provider.NewSimulated(provider.SimChain(chain.BSCTestnet))
	sessions, guard := connected(t, w)
	before := len(w.Calls())

	require.NoError(t, guard.EnsureChain(context.Background(), chain.BSCMainnet))

	calls := w.Calls()[before:]
	require.Equal(t, []string{"wallet_switchEthereumChain", "wallet_addEthereumChain", "wallet_switchEthereumChain"}, methods(calls))
	require.Equal(t, map[string]string{"chainId": "0x38"}, calls[0].Params)

	added, ok := calls[1].Params.(chain.AddChainParams)
	require.True(t, ok)
	require.Equal(t, "0x38", added.ChainID)
	require.Equal(t, "BNB Smart Chain Mainnet", added.ChainName)
	require.Equal(t, "BNB", added.NativeCurrency.Symbol)

	require.Equal(t, chain.BSCMainnet, sessions.Snapshot().ChainID)
}

func TestEnsureChainFailures(t *testing.T) {
	tests := []struct {
		name     string
		required uint64
		setup    func(w *provider.Simulated)
		reason   string
	}{
		{
			name:     "switch rejected",
			required: chain.BSCMainnet,
			setup: func(w *provider.Simulated) {
				w.RejectSwitch(true)
			},
			reason: "switch rejected",
		},
		{
			name:     "add rejected",
			required: chain.BSCMainnet,
			setup: func(w *provider.Simulated) {
				w.RejectAdd(true)
			},
			reason: "add network rejected",
		},
		{
			name:     "no descriptor",
			required: 1,
			setup:    func(*provider.Simulated) {},
			reason:   "wallet does not know the chain and no descriptor is configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := provider.NewSimulated(provider.SimChain(chain.BSCTestnet))
			sessions, guard := connected(t, w)
			tt.setup(w)

			err := guard.EnsureChain(context.Background(), tt.required)
			var chainErr *ChainError
			require.True(t, errors.As(err, &chainErr))
			require.Equal(t, tt.reason, chainErr.Reason)
			require.Equal(t, tt.required, chainErr.ChainID)
			require.Equal(t, chain.BSCTestnet, sessions.Snapshot().ChainID)
		})
	}
}

func TestEnsureChainNeedsConnection(t *testing.T) {
	sessions := session.NewManager(provider.Environment{provider.NewSimulated()}, time.Second, logging.Discard())
	guard := NewGuard(sessions, chain.Default(), logging.Discard())

	err := guard.EnsureChain(context.Background(), chain.BSCMainnet)
	require.ErrorIs(t, err, session.ErrNotConnected)
}
