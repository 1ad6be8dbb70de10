// Package orchestrator runs one wallet payment attempt end to end: connect,
// network check, submit, wait for confirmation and reconcile with the backend.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mlmnft/walletpay/internal/backend"
	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/journal"
	"github.com/mlmnft/walletpay/internal/network"
	"github.com/mlmnft/walletpay/internal/notification"
	"github.com/mlmnft/walletpay/internal/payment"
	"github.com/mlmnft/walletpay/internal/price"
	"github.com/mlmnft/walletpay/internal/provider"
	"github.com/mlmnft/walletpay/internal/session"
	"github.com/mlmnft/walletpay/internal/store"
)

const balanceRefreshTimeout = 10 * time.Second

// BalanceSource reads the authoritative balance after a payment.
type BalanceSource interface {
	Balance(ctx context.Context) (backend.Balance, error)
}

// Config holds the payment target.
type Config struct {
	ChainID             uint64
	Treasury            string
	ConfirmationTimeout time.Duration
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Sessions   *session.Manager
	Guard      *network.Guard
	Submitter  *payment.Submitter
	Waiter     *payment.Waiter
	Reconciler *payment.Reconciler
	Prices     price.Source
	Chains     *chain.Registry
	Journal    journal.Journal
	Balances   BalanceSource
	Cache      store.Store
	Notifier   notification.Notifier
	Logger     *slog.Logger
}

// Request is a user-initiated payment.
type Request struct {
	AmountUSD   decimal.Decimal `json:"amountUSD"`
	Purpose     string          `json:"purpose"`
	Description string          `json:"description"`
}

// Attempt is the outcome of one Pay call.
type Attempt struct {
	ID          string               `json:"id"`
	State       State                `json:"state"`
	Purpose     string               `json:"purpose"`
	Description string               `json:"description,omitempty"`
	AmountUSD   decimal.Decimal      `json:"amountUSD"`
	Intent      *payment.Intent      `json:"intent,omitempty"`
	Receipt     *payment.Receipt     `json:"receipt,omitempty"`
	ExplorerURL string               `json:"explorerUrl,omitempty"`
	ErrorKind   Kind                 `json:"errorKind,omitempty"`
	Message     notification.Message `json:"message"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// Orchestrator serializes payment attempts for one wallet session.
type Orchestrator struct {
	cfg  Config
	deps Deps

	running sync.Mutex
	refresh sync.WaitGroup
}

// New builds an Orchestrator.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = payment.DefaultConfirmationTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// Pay runs one attempt. The returned Attempt is populated even when err is
// non-nil; each failure ends the attempt and nothing is retried.
func (o *Orchestrator) Pay(ctx context.Context, req Request) (Attempt, error) {
	if !o.running.TryLock() {
		return Attempt{}, ErrAttemptInProgress
	}
	defer o.running.Unlock()

	if !req.AmountUSD.IsPositive() {
		return Attempt{}, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Purpose) == "" {
		return Attempt{}, fmt.Errorf("%w: purpose is required", ErrInvalidRequest)
	}

	a := &Attempt{
		ID:          uuid.NewString(),
		State:       StateIdle,
		Purpose:     req.Purpose,
		Description: req.Description,
		AmountUSD:   req.AmountUSD,
		CreatedAt:   time.Now().UTC(),
	}
	logger := o.deps.Logger.With(slog.String("attempt_id", a.ID))

	if err := o.advance(ctx, a, StateConnecting); err != nil {
		return *a, err
	}
	if _, err := o.deps.Sessions.Connect(ctx); err != nil {
		return o.fail(ctx, logger, a, err)
	}

	if err := o.advance(ctx, a, StateNetworkChecking); err != nil {
		return *a, err
	}
	if err := o.deps.Guard.EnsureChain(ctx, o.cfg.ChainID); err != nil {
		return o.fail(ctx, logger, a, err)
	}

	if err := o.advance(ctx, a, StateSubmitting); err != nil {
		return *a, err
	}
	rate, err := o.deps.Prices.RateUSD(ctx)
	if err != nil {
		return o.fail(ctx, logger, a, fmt.Errorf("price rate: %w", err))
	}
	intent, err := payment.NewIntent(req.AmountUSD, rate, o.cfg.Treasury, o.cfg.ChainID)
	if err != nil {
		return o.fail(ctx, logger, a, err)
	}
	a.Intent = &intent
	pending, err := o.deps.Submitter.Submit(ctx, intent)
	if err != nil {
		return o.fail(ctx, logger, a, err)
	}

	a.Receipt = &pending
	a.ExplorerURL = o.explorerURL(pending.TxHash)
	if err := o.advance(ctx, a, StatePendingOnChain); err != nil {
		return *a, err
	}
	o.notify(ctx, a, notification.KindPaymentPending)

	mined, err := o.deps.Waiter.AwaitConfirmation(ctx, pending, o.cfg.ConfirmationTimeout)
	if err != nil {
		// The transaction is broadcast; its outcome is unknown, not failed.
		a.ErrorKind = Classify(err)
		if a.ErrorKind != KindConfirmationTimeout {
			a.ErrorKind = KindConfirmationTimeout
			err = fmt.Errorf("%w: %w", payment.ErrConfirmationTimeout, err)
		}
		a.Message = notification.Describe(string(a.ErrorKind))
		o.save(ctx, a)
		logger.Warn("payment outcome unknown", slog.String("tx_hash", pending.TxHash), slog.Any("error", err))
		o.notify(ctx, a, string(a.ErrorKind))
		return *a, err
	}
	a.Receipt = &mined

	if mined.Status == payment.StatusFailed {
		return o.fail(ctx, logger, a, fmt.Errorf("%w: %s", ErrConfirmationFailed, mined.TxHash))
	}
	if err := o.advance(ctx, a, StateConfirmed); err != nil {
		return *a, err
	}

	if err := o.advance(ctx, a, StateReconciling); err != nil {
		return *a, err
	}
	if err := o.deps.Reconciler.Reconcile(ctx, mined, req.Purpose, req.Description); err != nil {
		a.ErrorKind = Classify(err)
		a.Message = notification.Describe(string(a.ErrorKind))
		if terr := o.advance(ctx, a, StateReconcileFailed); terr != nil {
			return *a, terr
		}
		o.notify(ctx, a, string(a.ErrorKind))
		return *a, err
	}

	a.Message = notification.Describe(notification.KindPaymentConfirmed)
	if err := o.advance(ctx, a, StateDone); err != nil {
		return *a, err
	}
	o.notify(ctx, a, notification.KindPaymentConfirmed)
	o.refreshBalance(ctx, logger)
	return *a, nil
}

// TransactionStatus reads the receipt of hash once. It reports the status and
// never reconciles.
func (o *Orchestrator) TransactionStatus(ctx context.Context, hash string) (TxStatus, error) {
	p, err := o.deps.Sessions.Provider()
	if err != nil {
		return TxStatus{}, err
	}
	status := TxStatus{TxHash: hash, Status: payment.StatusPending, ExplorerURL: o.explorerURL(hash)}
	if rec, err := o.deps.Journal.FindByTxHash(ctx, hash); err == nil {
		status.AttemptID = rec.ID
	}

	r, err := p.TransactionReceipt(ctx, hash)
	switch {
	case errors.Is(err, provider.ErrReceiptNotFound):
		return status, nil
	case err != nil:
		return TxStatus{}, fmt.Errorf("read receipt %s: %w", hash, err)
	}
	status.BlockNumber = r.BlockNumber
	status.Status = payment.StatusFailed
	if r.Successful() {
		status.Status = payment.StatusConfirmed
	}
	return status, nil
}

// TxStatus is a one-off receipt lookup result.
type TxStatus struct {
	TxHash      string         `json:"txHash"`
	Status      payment.Status `json:"status"`
	BlockNumber uint64         `json:"blockNumber,omitempty"`
	ExplorerURL string         `json:"explorerUrl,omitempty"`
	AttemptID   string         `json:"attemptId,omitempty"`
}

// FindAttempt loads a journaled attempt and its state history.
func (o *Orchestrator) FindAttempt(ctx context.Context, id string) (journal.Record, []journal.Step, error) {
	rec, err := o.deps.Journal.Get(ctx, id)
	if err != nil {
		return journal.Record{}, nil, err
	}
	steps, err := o.deps.Journal.History(ctx, id)
	if err != nil && !errors.Is(err, journal.ErrNotFound) {
		return journal.Record{}, nil, err
	}
	return rec, steps, nil
}

// Wait blocks until background balance refreshes finish.
func (o *Orchestrator) Wait() {
	o.refresh.Wait()
}

func (o *Orchestrator) advance(ctx context.Context, a *Attempt, next State) error {
	if err := checkTransition(a.State, next); err != nil {
		return err
	}
	a.State = next
	o.save(ctx, a)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, a *Attempt, err error) (Attempt, error) {
	a.ErrorKind = Classify(err)
	a.Message = notification.Describe(string(a.ErrorKind))
	if terr := o.advance(ctx, a, StateFailed); terr != nil {
		return *a, errors.Join(err, terr)
	}
	logger.Warn("payment attempt failed", slog.String("kind", string(a.ErrorKind)), slog.Any("error", err))
	o.notify(ctx, a, string(a.ErrorKind))
	return *a, err
}

// save journals the attempt. Write failures only log.
func (o *Orchestrator) save(ctx context.Context, a *Attempt) {
	if o.deps.Journal == nil {
		return
	}
	rec := journal.Record{
		ID:          a.ID,
		State:       string(a.State),
		Purpose:     a.Purpose,
		Description: a.Description,
		AmountUSD:   a.AmountUSD,
		ChainID:     o.cfg.ChainID,
		ErrorKind:   string(a.ErrorKind),
		CreatedAt:   a.CreatedAt,
	}
	if a.Intent != nil {
		rec.NativeAmount = a.Intent.NativeAmount
	}
	if a.Receipt != nil {
		rec.TxHash = a.Receipt.TxHash
		rec.WalletAddress = a.Receipt.From
	}
	if err := o.deps.Journal.Save(context.WithoutCancel(ctx), rec); err != nil {
		o.deps.Logger.Error("journal write failed",
			slog.String("attempt_id", a.ID),
			slog.String("state", string(a.State)),
			slog.Any("error", err),
		)
	}
}

func (o *Orchestrator) notify(ctx context.Context, a *Attempt, kind string) {
	if o.deps.Notifier == nil {
		return
	}
	msg := notification.Describe(kind)
	if a.Receipt != nil {
		msg.Destination = a.Receipt.From
	}
	_ = o.deps.Notifier.Send(ctx, msg)
}

// refreshBalance updates the cached display balance in the background. Its
// failure is never reported to the payer.
func (o *Orchestrator) refreshBalance(ctx context.Context, logger *slog.Logger) {
	if o.deps.Balances == nil || o.deps.Cache == nil {
		return
	}
	o.refresh.Add(1)
	go func() {
		defer o.refresh.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), balanceRefreshTimeout)
		defer cancel()

		bal, err := o.deps.Balances.Balance(rctx)
		if err != nil {
			logger.Warn("balance refresh failed", slog.Any("error", err))
			return
		}
		if err := o.deps.Cache.SetDemoBalance(rctx, bal.Balance); err != nil {
			logger.Warn("caching balance failed", slog.Any("error", err))
		}
	}()
}

func (o *Orchestrator) explorerURL(hash string) string {
	if o.deps.Chains == nil {
		return ""
	}
	d, ok := o.deps.Chains.Lookup(o.cfg.ChainID)
	if !ok {
		return ""
	}
	return d.TxURL(hash)
}
