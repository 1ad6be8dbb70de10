package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/provider"
	"github.com/mlmnft/walletpay/internal/session"
)

var (
	// ErrInsufficientFunds means the wallet cannot cover value plus gas.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUserRejected means the user declined to sign.
	ErrUserRejected = errors.New("user rejected the transaction")
)

// ProviderError is any other wallet failure while submitting.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return "transaction submission failed: " + e.Message }

func (e *ProviderError) Unwrap() error { return e.Err }

// Submitter sends exactly one value transfer per call. It expects the network
// guard to have run; it does not check the chain itself.
type Submitter struct {
	sessions *session.Manager
	chains   *chain.Registry
	logger   *slog.Logger
}

// NewSubmitter builds a Submitter.
func NewSubmitter(sessions *session.Manager, chains *chain.Registry, logger *slog.Logger) *Submitter {
	return &Submitter{sessions: sessions, chains: chains, logger: logger}
}

// Submit sends intent.NativeAmount to intent.Treasury and returns a pending receipt.
func (s *Submitter) Submit(ctx context.Context, intent Intent) (Receipt, error) {
	current := s.sessions.Snapshot()
	p, err := s.sessions.Provider()
	if err != nil || !current.Connected {
		return Receipt{}, session.ErrNotConnected
	}

	decimals := uint8(18)
	if d, ok := s.chains.Lookup(intent.ChainID); ok {
		decimals = d.NativeCurrency.Decimals
	}
	value, err := chain.ToWei(intent.NativeAmount, decimals)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if value.Sign() <= 0 {
		return Receipt{}, fmt.Errorf("%w: %s", ErrInvalidAmount, intent.NativeAmount)
	}

	tx := provider.Transaction{
		From:    current.Address,
		To:      intent.Treasury,
		Value:   value,
		ChainID: intent.ChainID,
	}
	hash, err := p.SendTransaction(ctx, tx)
	if err != nil {
		return Receipt{}, classifySubmitError(err)
	}

	s.logger.Info("payment submitted",
		slog.String("tx_hash", hash),
		slog.String("from", current.Address),
		slog.String("to", intent.Treasury),
		slog.String("native_amount", chain.FromWei(value, decimals).String()),
		slog.String("amount_usd", intent.AmountUSD.String()),
	)

	return Receipt{
		TxHash:       hash,
		Status:       StatusPending,
		From:         current.Address,
		To:           intent.Treasury,
		NativeAmount: intent.NativeAmount,
		AmountUSD:    intent.AmountUSD,
		ChainID:      intent.ChainID,
	}, nil
}

func classifySubmitError(err error) error {
	switch {
	case provider.IsUserRejected(err):
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	case provider.IsInsufficientFunds(err):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	default:
		return &ProviderError{Message: err.Error(), Err: err}
	}
}
