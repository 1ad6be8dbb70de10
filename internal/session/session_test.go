package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/logging"
	"github.com/mlmnft/walletpay/internal/logging/logtest"
	"github.com/mlmnft/walletpay/internal/provider"
)

const (
	alice = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bob   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func newManager(t *testing.T, wallets ...provider.Provider) *Manager {
	t.Helper()
	return NewManager(provider.Environment(wallets), time.Second, logtest.New(t))
}

func TestConnectSetsSessionAndListeners(t *testing.T) {
	w := provider.NewSimulated(provider.SimAccounts(alice), provider.SimChain(chain.BSCTestnet))
	m := newManager(t, w)

	var seen []Session
	cancel := m.Subscribe(func(s Session) { seen = append(seen, s) })
	defer cancel()

	s, err := m.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, Session{Address: alice, ChainID: chain.BSCTestnet, Connected: true}, s)
	require.Equal(t, s, m.Snapshot())
	require.Equal(t, provider.VendorMetaMask, m.Vendor())
	require.Equal(t, 2, w.ListenerCount())
	require.Equal(t, []Session{s}, seen)

	p, err := m.Provider()
	require.NoError(t, err)
	require.Same(t, w, p)

	// connecting again neither prompts nor re-registers listeners
	_, err = m.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, w.CallCount("eth_requestAccounts"))
	require.Equal(t, 2, w.ListenerCount())
}

func TestConnectWithoutProvider(t *testing.T) {
	m := newManager(t)
	require.False(t, m.Probe().Installed)
	require.Equal(t, provider.VendorNone, m.Probe().Vendor)

	_, err := m.Connect(context.Background())
	require.ErrorIs(t, err, ErrNoProviderFound)
	require.False(t, m.Snapshot().Connected)
}

func TestConnectUserRejected(t *testing.T) {
	w := provider.NewSimulated()
	w.RejectConnect(true)
	m := newManager(t, w)

	_, err := m.Connect(context.Background())
	require.ErrorIs(t, err, ErrUserRejected)
	require.Zero(t, w.ListenerCount())
}

func TestConnectTimeout(t *testing.T) {
	w := provider.NewSimulated()
	w.HoldConnect(true)
	m := NewManager(provider.Environment{w}, 20*time.Millisecond, logging.Discard())

	_, err := m.Connect(context.Background())
	require.ErrorIs(t, err, ErrConnectTimeout)
	require.False(t, m.Snapshot().Connected)
}

func TestConcurrentConnectCoalesces(t *testing.T) {
	w := provider.NewSimulated(provider.SimAccounts(alice))
	m := newManager(t, w)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Connect(context.Background())
			if err != nil {
				t.Errorf("connect: %v", err)
				return
			}
			if s.Address != alice {
				t.Errorf("unexpected address %s", s.Address)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, w.CallCount("eth_requestAccounts"))
	require.Equal(t, 2, w.ListenerCount())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	w := provider.NewSimulated()
	m := newManager(t, w)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	m.Disconnect()
	first := m.Snapshot()
	m.Disconnect()
	second := m.Snapshot()

	require.Equal(t, Session{}, first)
	require.Equal(t, first, second)
	require.Zero(t, w.ListenerCount())
	_, err = m.Provider()
	require.ErrorIs(t, err, ErrNotConnected)

	raw, err := json.Marshal(second)
	require.NoError(t, err)
	require.JSONEq(t, `{"address":null,"chainId":null,"connected":false}`, string(raw))
}

// gatedWallet holds account requests until release is closed.
type gatedWallet struct {
	*provider.Simulated
	entered chan struct{}
	release chan struct{}
}

func (g *gatedWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	close(g.entered)
	<-g.release
	return g.Simulated.RequestAccounts(ctx)
}

func TestDisconnectDuringApprovalDiscardsConnect(t *testing.T) {
	w := &gatedWallet{
		Simulated: provider.NewSimulated(provider.SimAccounts(alice)),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	m := newManager(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := m.Connect(context.Background())
		done <- err
	}()

	<-w.entered
	m.Disconnect()
	close(w.release)

	err := <-done
	require.ErrorIs(t, err, ErrNotConnected)
	require.False(t, m.Snapshot().Connected)
	require.Zero(t, w.ListenerCount())
	_, err = m.Provider()
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestProviderEventsUpdateSession(t *testing.T) {
	w := provider.NewSimulated(provider.SimAccounts(alice))
	m := newManager(t, w)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	w.ChangeChain(chain.BSCMainnet)
	require.Equal(t, chain.BSCMainnet, m.Snapshot().ChainID)

	w.ChangeAccounts(bob)
	require.Equal(t, bob, m.Snapshot().Address)

	w.ChangeAccounts()
	require.Equal(t, Session{}, m.Snapshot())
	require.Zero(t, w.ListenerCount())
}

func TestSetChainIDIgnoredWhenDisconnected(t *testing.T) {
	m := newManager(t, provider.NewSimulated())
	m.SetChainID(chain.BSCMainnet)
	require.Equal(t, Session{}, m.Snapshot())
}
