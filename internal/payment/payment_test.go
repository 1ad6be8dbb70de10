package payment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mlmnft/walletpay/internal/backend"
	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/logging/logtest"
	"github.com/mlmnft/walletpay/internal/provider"
	"github.com/mlmnft/walletpay/internal/session"
)

const (
	payer    = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	treasury = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func connected(t *testing.T, opts ...provider.SimOption) (*provider.Simulated, *session.Manager) {
	t.Helper()
	w := provider.NewSimulated(opts...)
	m := session.NewManager(provider.Environment{w}, time.Second, logtest.New(t))
	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	return w, m
}

func testIntent(t *testing.T, usd string) Intent {
	t.Helper()
	in, err := NewIntent(decimal.RequireFromString(usd), decimal.NewFromInt(600), treasury, chain.BSCTestnet)
	require.NoError(t, err)
	return in
}

func TestNewIntentRoundsToSixDecimals(t *testing.T) {
	in := testIntent(t, "10")
	require.Equal(t, "0.016667", in.NativeAmount.String())
	require.Equal(t, treasury, in.Treasury)

	half, err := NewIntent(decimal.RequireFromString("0.0000005"), decimal.NewFromInt(1), treasury, chain.BSCTestnet)
	require.NoError(t, err)
	require.Equal(t, "0.000001", half.NativeAmount.String())
}

func TestNewIntentRejectsBadInput(t *testing.T) {
	cases := []struct {
		name     string
		usd      string
		rate     string
		treasury string
		chainID  uint64
	}{
		{"zero amount", "0", "600", treasury, chain.BSCTestnet},
		{"negative amount", "-5", "600", treasury, chain.BSCTestnet},
		{"zero rate", "10", "0", treasury, chain.BSCTestnet},
		{"rounds to zero", "0.0001", "600", treasury, chain.BSCTestnet},
		{"bad treasury", "10", "600", "0x1234", chain.BSCTestnet},
		{"missing chain", "10", "600", treasury, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewIntent(decimal.RequireFromString(tc.usd), decimal.RequireFromString(tc.rate), tc.treasury, tc.chainID)
			require.Error(t, err)
		})
	}
}

func TestReceiptResolveOnce(t *testing.T) {
	r := Receipt{TxHash: "0xabc", Status: StatusPending}
	done, err := r.Resolve(true, 7)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, done.Status)
	require.Equal(t, uint64(7), done.BlockNumber)
	require.True(t, done.Terminal())

	_, err = done.Resolve(false, 8)
	require.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestSubmitSendsOneTransfer(t *testing.T) {
	w, m := connected(t)
	s := NewSubmitter(m, chain.Default(), logtest.New(t))

	r, err := s.Submit(context.Background(), testIntent(t, "10"))
	require.NoError(t, err)
	require.Equal(t, StatusPending, r.Status)
	require.Equal(t, payer, r.From)
	require.Equal(t, treasury, r.To)
	require.NotEmpty(t, r.TxHash)

	require.Equal(t, 1, w.CallCount("eth_sendTransaction"))
	var sent provider.Transaction
	for _, c := range w.Calls() {
		if c.Method == "eth_sendTransaction" {
			sent = c.Params.(provider.Transaction)
		}
	}
	want, _ := new(big.Int).SetString("16667000000000000", 10)
	require.Equal(t, 0, want.Cmp(sent.Value))
	require.Equal(t, chain.BSCTestnet, sent.ChainID)
}

func TestSubmitErrors(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		w, m := connected(t)
		w.RejectSend(true)
		_, err := NewSubmitter(m, chain.Default(), logtest.New(t)).Submit(context.Background(), testIntent(t, "10"))
		require.ErrorIs(t, err, ErrUserRejected)
	})
	t.Run("insufficient funds", func(t *testing.T) {
		_, m := connected(t, provider.SimBalance(big.NewInt(1000)))
		_, err := NewSubmitter(m, chain.Default(), logtest.New(t)).Submit(context.Background(), testIntent(t, "10"))
		require.ErrorIs(t, err, ErrInsufficientFunds)
	})
	t.Run("not connected", func(t *testing.T) {
		w := provider.NewSimulated()
		m := session.NewManager(provider.Environment{w}, time.Second, logtest.New(t))
		_, err := NewSubmitter(m, chain.Default(), logtest.New(t)).Submit(context.Background(), testIntent(t, "10"))
		require.ErrorIs(t, err, session.ErrNotConnected)
		require.Zero(t, w.CallCount("eth_sendTransaction"))
	})
	t.Run("locked wallet", func(t *testing.T) {
		w, m := connected(t)
		w.ChangeAccounts()
		_, err := NewSubmitter(m, chain.Default(), logtest.New(t)).Submit(context.Background(), testIntent(t, "10"))
		require.ErrorIs(t, err, session.ErrNotConnected)
		require.Zero(t, w.CallCount("eth_sendTransaction"))
	})
}

func TestAwaitConfirmation(t *testing.T) {
	w, m := connected(t)
	w.ConfirmAfter(2)
	r, err := NewSubmitter(m, chain.Default(), logtest.New(t)).Submit(context.Background(), testIntent(t, "10"))
	require.NoError(t, err)

	waiter := NewWaiter(m, time.Millisecond, logtest.New(t))
	done, err := waiter.AwaitConfirmation(context.Background(), r, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, done.Status)
	require.Equal(t, 3, w.CallCount("eth_getTransactionReceipt"))
}

func TestAwaitConfirmationReverted(t *testing.T) {
	w, m := connected(t)
	w.Revert(true)
	r, err := NewSubmitter(m, chain.Default(), logtest.New(t)).Submit(context.Background(), testIntent(t, "10"))
	require.NoError(t, err)

	done, err := NewWaiter(m, time.Millisecond, logtest.New(t)).AwaitConfirmation(context.Background(), r, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, done.Status)
}

func TestAwaitConfirmationTimeoutIsNotFailure(t *testing.T) {
	w, m := connected(t)
	w.NeverMine(true)
	r, err := NewSubmitter(m, chain.Default(), logtest.New(t)).Submit(context.Background(), testIntent(t, "10"))
	require.NoError(t, err)

	got, err := NewWaiter(m, 5*time.Millisecond, logtest.New(t)).AwaitConfirmation(context.Background(), r, 30*time.Millisecond)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.Equal(t, StatusPending, got.Status)
	require.Greater(t, w.CallCount("eth_getTransactionReceipt"), 1)
}

type staticSource struct{ p provider.Provider }

func (s staticSource) Provider() (provider.Provider, error) { return s.p, nil }

// statuslessWallet returns mined receipts the node cannot report a status for.
type statuslessWallet struct {
	*provider.Simulated
	mu    sync.Mutex
	polls int
}

func (w *statuslessWallet) TransactionReceipt(_ context.Context, hash string) (provider.Receipt, error) {
	w.mu.Lock()
	w.polls++
	w.mu.Unlock()
	return provider.Receipt{}, fmt.Errorf("%w: receipt %s has no status", provider.ErrMalformedReceipt, hash)
}

func TestAwaitConfirmationStopsOnMalformedReceipt(t *testing.T) {
	w := &statuslessWallet{Simulated: provider.NewSimulated()}
	pending := Receipt{TxHash: "0x01", Status: StatusPending, To: treasury}

	start := time.Now()
	got, err := NewWaiter(staticSource{w}, time.Millisecond, logtest.New(t)).AwaitConfirmation(context.Background(), pending, 5*time.Second)
	require.ErrorIs(t, err, provider.ErrMalformedReceipt)
	require.NotErrorIs(t, err, ErrConfirmationTimeout)
	require.Equal(t, StatusPending, got.Status)
	require.Less(t, time.Since(start), time.Second)

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Equal(t, 1, w.polls)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []backend.PaymentRecord
	err     error
}

func (f *fakeRecorder) RecordPayment(_ context.Context, rec backend.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

func TestReconcile(t *testing.T) {
	rec := &fakeRecorder{}
	rc := NewReconciler(rec, logtest.New(t))
	confirmed := Receipt{
		TxHash:       "0xfeed",
		Status:       StatusConfirmed,
		From:         payer,
		To:           treasury,
		NativeAmount: decimal.RequireFromString("0.016667"),
		AmountUSD:    decimal.NewFromInt(10),
	}

	require.NoError(t, rc.Reconcile(context.Background(), confirmed, "activation", "Account activation"))
	require.Len(t, rec.records, 1)
	require.Equal(t, "0xfeed", rec.records[0].TxHash)
	require.Equal(t, payer, rec.records[0].WalletAddress)
	require.Equal(t, "activation", rec.records[0].Purpose)
}

func TestReconcileRefusesUnconfirmed(t *testing.T) {
	rec := &fakeRecorder{}
	rc := NewReconciler(rec, logtest.New(t))
	for _, st := range []Status{StatusPending, StatusFailed} {
		err := rc.Reconcile(context.Background(), Receipt{TxHash: "0x1", Status: st}, "p", "d")
		require.ErrorIs(t, err, ErrNotConfirmed)
	}
	require.Empty(t, rec.records)
}

func TestReconcileFailureIsNotRetried(t *testing.T) {
	rec := &fakeRecorder{err: backend.ErrBackendUnreachable}
	rc := NewReconciler(rec, logtest.New(t))

	err := rc.Reconcile(context.Background(), Receipt{TxHash: "0x2", Status: StatusConfirmed}, "p", "d")
	var rerr *ReconcileError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "0x2", rerr.TxHash)
	require.ErrorIs(t, err, backend.ErrBackendUnreachable)
	require.Len(t, rec.records, 1)
}
