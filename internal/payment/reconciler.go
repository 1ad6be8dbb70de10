package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mlmnft/walletpay/internal/backend"
)

// ErrNotConfirmed is returned when asked to reconcile a receipt that is not confirmed.
var ErrNotConfirmed = errors.New("only confirmed payments can be reconciled")

// ReconcileError means the funds moved on-chain but the backend did not record
// them. The payment must not be resubmitted.
type ReconcileError struct {
	TxHash string
	Err    error
}

func (e *ReconcileError) Error() string {
	return "payment " + e.TxHash + " succeeded on-chain but balance update failed: " + e.Err.Error()
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// Recorder is the backend call reconciliation depends on.
type Recorder interface {
	RecordPayment(ctx context.Context, record backend.PaymentRecord) error
}

// Reconciler reports confirmed payments to the backend.
type Reconciler struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewReconciler builds a Reconciler.
func NewReconciler(recorder Recorder, logger *slog.Logger) *Reconciler {
	return &Reconciler{recorder: recorder, logger: logger}
}

// Reconcile sends one record for receipt. It never retries.
func (r *Reconciler) Reconcile(ctx context.Context, receipt Receipt, purpose, description string) error {
	if receipt.Status != StatusConfirmed {
		return ErrNotConfirmed
	}

	record := backend.PaymentRecord{
		TxHash:        receipt.TxHash,
		WalletAddress: receipt.From,
		Amount:        receipt.NativeAmount,
		AmountUSD:     receipt.AmountUSD,
		Purpose:       purpose,
		Description:   description,
	}
	if err := r.recorder.RecordPayment(ctx, record); err != nil {
		r.logger.Error("payment reconciliation failed",
			slog.String("tx_hash", receipt.TxHash),
			slog.String("wallet", receipt.From),
			slog.Any("error", err),
		)
		return &ReconcileError{TxHash: receipt.TxHash, Err: err}
	}

	r.logger.Info("payment reconciled", slog.String("tx_hash", receipt.TxHash), slog.String("purpose", purpose))
	return nil
}
