// Package session owns the process-wide wallet connection state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mlmnft/walletpay/internal/chain"
	"github.com/mlmnft/walletpay/internal/provider"
)

// DefaultConnectTimeout bounds how long Connect waits for the user to approve.
const DefaultConnectTimeout = 30 * time.Second

var (
	// ErrNoProviderFound means no wallet provider is installed.
	ErrNoProviderFound = errors.New("no wallet provider found")
	// ErrUserRejected means the user declined the account request.
	ErrUserRejected = errors.New("user rejected the connection request")
	// ErrConnectTimeout means the wallet did not answer within the connect budget.
	ErrConnectTimeout = errors.New("wallet connection timed out")
	// ErrNotConnected is returned by operations that need a connected wallet.
	ErrNotConnected = errors.New("wallet not connected")
)

// UnknownError wraps any other provider failure during connect.
type UnknownError struct {
	Message string
	Err     error
}

func (e *UnknownError) Error() string { return "wallet connection failed: " + e.Message }

func (e *UnknownError) Unwrap() error { return e.Err }

// Session is a snapshot of the wallet connection.
type Session struct {
	Address   string
	ChainID   uint64
	Connected bool
}

// MarshalJSON renders a disconnected session with null address and chain id.
func (s Session) MarshalJSON() ([]byte, error) {
	out := struct {
		Address   *string `json:"address"`
		ChainID   *uint64 `json:"chainId"`
		Connected bool    `json:"connected"`
	}{Connected: s.Connected}
	if s.Address != "" {
		out.Address = &s.Address
	}
	if s.ChainID != 0 {
		out.ChainID = &s.ChainID
	}
	return json.Marshal(out)
}

// Observer is notified with a new snapshot after every change.
type Observer func(Session)

// Manager is the single owner of the Session. All mutation goes through it.
type Manager struct {
	env     provider.Environment
	timeout time.Duration
	logger  *slog.Logger

	mu        sync.RWMutex
	state     Session
	active    provider.Provider
	vendor    provider.Vendor
	subs      []provider.Subscription
	observers map[int]Observer
	nextObs   int
	// gen is bumped by Disconnect; a connect started under an older gen is discarded.
	gen uint64

	flight singleflight.Group
}

// NewManager builds a Manager over the providers of env.
func NewManager(env provider.Environment, timeout time.Duration, logger *slog.Logger) *Manager {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &Manager{env: env, timeout: timeout, logger: logger, observers: make(map[int]Observer)}
}

// Probe reports which wallet would be used, without side effects.
func (m *Manager) Probe() provider.Detection {
	return provider.Probe(m.env)
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Provider returns the connected provider, or ErrNotConnected.
func (m *Manager) Provider() (provider.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.state.Connected || m.active == nil {
		return nil, ErrNotConnected
	}
	return m.active, nil
}

// Vendor returns the vendor of the connected provider.
func (m *Manager) Vendor() provider.Vendor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return provider.VendorNone
	}
	return m.vendor
}

// Subscribe registers fn for session changes; call the returned func to stop.
func (m *Manager) Subscribe(fn Observer) (cancel func()) {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// Connect requests account access. Concurrent calls share one request and a
// connected manager returns its current session without re-registering listeners.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	if s := m.Snapshot(); s.Connected {
		return s, nil
	}

	ch := m.flight.DoChan("connect", func() (any, error) {
		// The shared request must not die with whichever caller started it.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.connect(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Session{}, res.Err
		}
		return res.Val.(Session), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Session{}, ErrConnectTimeout
		}
		return Session{}, ctx.Err()
	}
}

func (m *Manager) connect(ctx context.Context) (Session, error) {
	if s := m.Snapshot(); s.Connected {
		return s, nil
	}

	detected := provider.Probe(m.env)
	if !detected.Installed {
		return Session{}, ErrNoProviderFound
	}
	p := detected.Provider

	m.mu.RLock()
	gen := m.gen
	m.mu.RUnlock()

	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		return Session{}, classifyConnectError(ctx, err)
	}
	if len(accounts) == 0 {
		return Session{}, &UnknownError{Message: "wallet returned no accounts"}
	}
	address, err := chain.NormalizeAddress(accounts[0])
	if err != nil {
		return Session{}, &UnknownError{Message: fmt.Sprintf("wallet returned invalid account %q", accounts[0]), Err: err}
	}

	chainID, err := p.ChainID(ctx)
	if err != nil {
		return Session{}, classifyConnectError(ctx, err)
	}

	subs := []provider.Subscription{
		p.OnAccountsChanged(m.handleAccountsChanged),
		p.OnChainChanged(m.handleChainChanged),
	}

	next := Session{Address: address, ChainID: chainID, Connected: true}
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		m.logger.Info("wallet approval arrived after disconnect, discarding")
		return Session{}, fmt.Errorf("%w: disconnected while awaiting approval", ErrNotConnected)
	}
	m.active = p
	m.vendor = detected.Vendor
	m.subs = subs
	m.state = next
	m.mu.Unlock()

	m.logger.Info("wallet connected",
		slog.String("vendor", string(detected.Vendor)),
		slog.String("address", address),
		slog.Uint64("chain_id", chainID),
	)
	m.notify(next)
	return next, nil
}

func classifyConnectError(ctx context.Context, err error) error {
	switch {
	case provider.IsUserRejected(err):
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrConnectTimeout
	default:
		return &UnknownError{Message: err.Error(), Err: err}
	}
}

// Disconnect clears the session and releases provider listeners. Safe to call
// when already disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	wasConnected := m.state.Connected
	subs := m.subs
	m.subs = nil
	m.active = nil
	m.vendor = provider.VendorNone
	m.state = Session{}
	m.mu.Unlock()
	m.flight.Forget("connect")

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if wasConnected {
		m.logger.Info("wallet disconnected")
		m.notify(Session{})
	}
}

// SetChainID records a chain switch performed through the provider.
func (m *Manager) SetChainID(id uint64) {
	m.mu.Lock()
	if !m.state.Connected || m.state.ChainID == id {
		m.mu.Unlock()
		return
	}
	m.state.ChainID = id
	next := m.state
	m.mu.Unlock()
	m.notify(next)
}

func (m *Manager) handleAccountsChanged(accounts []string) {
	if len(accounts) == 0 {
		m.logger.Info("wallet locked or accounts revoked")
		m.Disconnect()
		return
	}
	address, err := chain.NormalizeAddress(accounts[0])
	if err != nil {
		m.logger.Warn("ignoring invalid account from provider", slog.String("account", accounts[0]))
		return
	}

	m.mu.Lock()
	if !m.state.Connected || m.state.Address == address {
		m.mu.Unlock()
		return
	}
	m.state.Address = address
	next := m.state
	m.mu.Unlock()

	m.logger.Info("wallet account changed", slog.String("address", address))
	m.notify(next)
}

func (m *Manager) handleChainChanged(chainID uint64) {
	m.logger.Info("wallet chain changed", slog.Uint64("chain_id", chainID))
	m.SetChainID(chainID)
}

// notify runs observers outside the lock.
func (m *Manager) notify(s Session) {
	m.mu.RLock()
	observers := make([]Observer, 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.RUnlock()
	for _, fn := range observers {
		fn(s)
	}
}
