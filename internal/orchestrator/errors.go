package orchestrator

import (
	"errors"

	"github.com/mlmnft/walletpay/internal/backend"
	"github.com/mlmnft/walletpay/internal/network"
	"github.com/mlmnft/walletpay/internal/payment"
	"github.com/mlmnft/walletpay/internal/session"
)

// Kind is the user-facing category of a failed or unresolved attempt.
type Kind string

const (
	KindProviderUnavailable  Kind = "provider_unavailable"
	KindUserRejected         Kind = "user_rejected"
	KindWrongNetwork         Kind = "wrong_network"
	KindInsufficientFunds    Kind = "insufficient_funds"
	KindSubmissionFailed     Kind = "submission_failed"
	KindConfirmationTimeout  Kind = "confirmation_timeout"
	KindConfirmationFailed   Kind = "confirmation_failed"
	KindReconciliationFailed Kind = "reconciliation_failed"
	KindBackendUnreachable   Kind = "backend_unreachable"
)

var (
	// ErrAttemptInProgress rejects a payment while another one is running.
	ErrAttemptInProgress = errors.New("a payment attempt is already in progress")
	// ErrInvalidRequest rejects a malformed payment request before any wallet call.
	ErrInvalidRequest = errors.New("invalid payment request")
	// ErrConfirmationFailed means the transaction was mined and reverted.
	ErrConfirmationFailed = errors.New("transaction reverted on-chain")
	// ErrInvalidTransition guards the forward-only state machine.
	ErrInvalidTransition = errors.New("invalid attempt state transition")
)

// Classify maps a component error onto a Kind. A nil error has no kind.
func Classify(err error) Kind {
	var (
		reconcileErr *payment.ReconcileError
		chainErr     *network.ChainError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &reconcileErr):
		return KindReconciliationFailed
	case errors.Is(err, payment.ErrConfirmationTimeout):
		return KindConfirmationTimeout
	case errors.Is(err, ErrConfirmationFailed):
		return KindConfirmationFailed
	case errors.Is(err, session.ErrNoProviderFound),
		errors.Is(err, session.ErrNotConnected),
		errors.Is(err, session.ErrConnectTimeout):
		return KindProviderUnavailable
	case errors.As(err, &chainErr):
		return KindWrongNetwork
	case errors.Is(err, session.ErrUserRejected), errors.Is(err, payment.ErrUserRejected):
		return KindUserRejected
	case errors.Is(err, payment.ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, backend.ErrBackendUnreachable):
		return KindBackendUnreachable
	default:
		return KindSubmissionFailed
	}
}
