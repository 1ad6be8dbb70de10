// Package network keeps the connected wallet on the platform's chain.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/provider"
	"github.com/mlmnft/walletpay/internal/session"
)

// ChainError stops a payment at the network check.
type ChainError struct {
	ChainID uint64
	Reason  string
	Err     error
}

func (e *ChainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wrong network (want %s): %s: %v", chain.HexID(e.ChainID), e.Reason, e.Err)
	}
	return fmt.Sprintf("wrong network (want %s): %s", chain.HexID(e.ChainID), e.Reason)
}

func (e *ChainError) Unwrap() error { return e.Err }

// Guard switches the wallet to the required chain, adding it first when the
// wallet does not know it.
type Guard struct {
	sessions *session.Manager
	chains   *chain.Registry
	logger   *slog.Logger
}

// NewGuard builds a Guard.
func NewGuard(sessions *session.Manager, chains *chain.Registry, logger *slog.Logger) *Guard {
	return &Guard{sessions: sessions, chains: chains, logger: logger}
}

// EnsureChain returns nil once the session is on required. A session already
// on required costs no provider call.
func (g *Guard) EnsureChain(ctx context.Context, required uint64) error {
	current := g.sessions.Snapshot()
	if !current.Connected {
		return &ChainError{ChainID: required, Reason: "wallet not connected", Err: session.ErrNotConnected}
	}
	if current.ChainID == required {
		return nil
	}

	p, err := g.sessions.Provider()
	if err != nil {
		return &ChainError{ChainID: required, Reason: "wallet not connected", Err: err}
	}

	g.logger.Info("switching wallet network",
		slog.Uint64("from_chain_id", current.ChainID),
		slog.Uint64("to_chain_id", required),
	)

	err = p.SwitchChain(ctx, required)
	if err != nil && provider.IsUnknownChain(err) {
		err = g.addAndSwitch(ctx, p, required)
	}
	if err != nil {
		var chainErr *ChainError
		if errors.As(err, &chainErr) {
			return err
		}
		return &ChainError{ChainID: required, Reason: "switch rejected", Err: err}
	}

	g.sessions.SetChainID(required)
	return nil
}

func (g *Guard) addAndSwitch(ctx context.Context, p provider.Provider, required uint64) error {
	descriptor, ok := g.chains.Lookup(required)
	if !ok {
		return &ChainError{ChainID: required, Reason: "wallet does not know the chain and no descriptor is configured"}
	}

	g.logger.Info("adding network to wallet", slog.String("chain", descriptor.Name))
	if err := p.AddChain(ctx, descriptor.AddChainParams()); err != nil {
		return &ChainError{ChainID: required, Reason: "add network rejected", Err: err}
	}
	if err := p.SwitchChain(ctx, required); err != nil {
		return &ChainError{ChainID: required, Reason: "switch after add rejected", Err: err}
	}
	return nil
}
