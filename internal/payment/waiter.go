package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/provider"
)

const (
	// DefaultConfirmationTimeout is how long AwaitConfirmation waits by default.
	DefaultConfirmationTimeout = 60 * time.Second
	// DefaultPollInterval is the gap between receipt polls.
	DefaultPollInterval = 2 * time.Second
)

// ErrConfirmationTimeout means we stopped waiting. The transaction may still
// land; it has not failed.
var ErrConfirmationTimeout = errors.New("confirmation timed out, transaction status unknown")

// ProviderSource yields the connected provider.
type ProviderSource interface {
	Provider() (provider.Provider, error)
}

// Waiter polls for a transaction receipt.
type Waiter struct {
	providers ProviderSource
	interval  time.Duration
	logger    *slog.Logger
}

// NewWaiter builds a Waiter polling every interval.
func NewWaiter(providers ProviderSource, interval time.Duration, logger *slog.Logger) *Waiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Waiter{providers: providers, interval: interval, logger: logger}
}

// AwaitConfirmation polls until pending is mined or timeout passes, and
// returns the receipt resolved to confirmed or failed.
func (w *Waiter) AwaitConfirmation(ctx context.Context, pending Receipt, timeout time.Duration) (Receipt, error) {
	if pending.Terminal() {
		return pending, nil
	}
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	p, err := w.providers.Provider()
	if err != nil {
		return pending, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mined provider.Receipt
	op := func() error {
		r, err := p.TransactionReceipt(waitCtx, pending.TxHash)
		switch {
		case err == nil:
			mined = r
			return nil
		case errors.Is(err, provider.ErrReceiptNotFound):
			return err
		case provider.IsUserRejected(err), errors.Is(err, provider.ErrMalformedReceipt):
			return backoff.Permanent(err)
		default:
			if waitCtx.Err() == nil {
				w.logger.Warn("receipt poll failed", slog.String("tx_hash", pending.TxHash), slog.Any("error", err))
			}
			return err
		}
	}

	err = backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(w.interval), waitCtx))
	if err != nil {
		if waitCtx.Err() != nil {
			w.logger.Warn("stopped waiting for confirmation",
				slog.String("tx_hash", pending.TxHash),
				slog.Duration("timeout", timeout),
			)
			if ctx.Err() != nil {
				return pending, fmt.Errorf("%w: %w", ErrConfirmationTimeout, ctx.Err())
			}
			return pending, fmt.Errorf("%w after %s", ErrConfirmationTimeout, timeout)
		}
		return pending, fmt.Errorf("poll receipt %s: %w", pending.TxHash, err)
	}

	if mined.To != "" && !chain.SameAddress(mined.To, pending.To) {
		w.logger.Warn("mined receipt recipient differs from intent",
			slog.String("tx_hash", pending.TxHash),
			slog.String("expected", pending.To),
			slog.String("got", mined.To),
		)
	}

	resolved, err := pending.Resolve(mined.Successful(), mined.BlockNumber)
	if err != nil {
		return pending, err
	}
	w.logger.Info("payment mined",
		slog.String("tx_hash", resolved.TxHash),
		slog.String("status", string(resolved.Status)),
		slog.Uint64("block", resolved.BlockNumber),
	)
	return resolved, nil
}
