package provider

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/mlmnft/walletpay/internal/chain"
)

// Call records one request made against a Simulated wallet.
type Call struct {
	Method string
	Params any
}

type simTx struct {
	tx    Transaction
	polls int
}

// Simulated is an in-memory wallet. It backs tests and local development
// without a browser extension.
type Simulated struct {
	mu         sync.Mutex
	flags      Flags
	accounts   []string
	authorized bool
	chainID    uint64
	known      map[uint64]bool
	balance    *big.Int
	calls      []Call
	txs        map[string]*simTx
	txOrder    []string

	rejectConnect bool
	holdConnect   bool
	rejectSwitch  bool
	rejectAdd     bool
	rejectSend    bool
	confirmAfter  int
	neverMine     bool
	revert        bool

	accountL listenerSet[[]string]
	chainL   listenerSet[uint64]
}

// SimOption configures a Simulated wallet.
type SimOption func(*Simulated)

// SimAccounts sets the wallet accounts; the first one is the active account.
func SimAccounts(addrs ...string) SimOption {
	return func(s *Simulated) { s.accounts = append([]string(nil), addrs...) }
}

// SimChain sets the active chain and marks it known.
func SimChain(id uint64) SimOption {
	return func(s *Simulated) {
		s.chainID = id
		s.known[id] = true
	}
}

// SimKnownChains marks chains the wallet can switch to without adding them.
func SimKnownChains(ids ...uint64) SimOption {
	return func(s *Simulated) {
		for _, id := range ids {
			s.known[id] = true
		}
	}
}

// SimBalance sets the active account's balance in wei.
func SimBalance(wei *big.Int) SimOption {
	return func(s *Simulated) { s.balance = new(big.Int).Set(wei) }
}

// SimFlags sets the vendor flags.
func SimFlags(f Flags) SimOption {
	return func(s *Simulated) { s.flags = f }
}

// NewSimulated builds a wallet on BSC Testnet holding 10 BNB.
func NewSimulated(opts ...SimOption) *Simulated {
	s := &Simulated{
		flags:    FlagsFor(VendorMetaMask),
		accounts: []string{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		chainID:  chain.BSCTestnet,
		known:    map[uint64]bool{chain.BSCTestnet: true},
		balance:  new(big.Int).Mul(big.NewInt(10), big.NewInt(1_000_000_000_000_000_000)),
		txs:      make(map[string]*simTx),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) record(method string, params any) {
	s.calls = append(s.calls, Call{Method: method, Params: params})
}

// Flags returns the configured flags.
func (s *Simulated) Flags() Flags { return s.flags }

// RequestAccounts authorizes the wallet unless configured to reject or hold.
func (s *Simulated) RequestAccounts(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.record("eth_requestAccounts", nil)
	hold, reject := s.holdConnect, s.rejectConnect
	s.mu.Unlock()

	if hold {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if reject {
		return nil, &RPCError{Code: CodeUserRejected, Message: "User rejected the request."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized = true
	return append([]string(nil), s.accounts...), nil
}

// Accounts lists accounts once authorized.
func (s *Simulated) Accounts(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("eth_accounts", nil)
	if !s.authorized {
		return []string{}, nil
	}
	return append([]string(nil), s.accounts...), nil
}

// ChainID returns the active chain.
func (s *Simulated) ChainID(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("eth_chainId", nil)
	return s.chainID, nil
}

// SwitchChain changes network; unknown chains fail with 4902.
func (s *Simulated) SwitchChain(_ context.Context, chainID uint64) error {
	s.mu.Lock()
	s.record("wallet_switchEthereumChain", map[string]string{"chainId": chain.HexID(chainID)})
	if s.rejectSwitch {
		s.mu.Unlock()
		return &RPCError{Code: CodeUserRejected, Message: "User rejected the request."}
	}
	if !s.known[chainID] {
		s.mu.Unlock()
		return &RPCError{Code: CodeUnknownChain, Message: fmt.Sprintf("Unrecognized chain ID %q.", chain.HexID(chainID))}
	}
	changed := s.chainID != chainID
	s.chainID = chainID
	s.mu.Unlock()

	if changed {
		s.chainL.emit(chainID)
	}
	return nil
}

// AddChain makes a chain known.
func (s *Simulated) AddChain(_ context.Context, params chain.AddChainParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("wallet_addEthereumChain", params)
	if s.rejectAdd {
		return &RPCError{Code: CodeUserRejected, Message: "User rejected the request."}
	}
	id, err := chain.ParseHexID(params.ChainID)
	if err != nil {
		return &RPCError{Code: -32602, Message: err.Error()}
	}
	s.known[id] = true
	return nil
}

// SendTransaction debits the balance and queues a receipt.
func (s *Simulated) SendTransaction(_ context.Context, tx Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("eth_sendTransaction", tx)
	if !s.authorized {
		return "", &RPCError{Code: CodeUnauthorized, Message: "The requested account has not been authorized."}
	}
	if s.rejectSend {
		return "", &RPCError{Code: CodeUserRejected, Message: "User denied transaction signature."}
	}
	if tx.Value == nil || tx.Value.Cmp(s.balance) > 0 {
		return "", &RPCError{Code: CodeServerError, Message: "insufficient funds for gas * price + value"}
	}
	s.balance.Sub(s.balance, tx.Value)
	hash := fmt.Sprintf("0x%064x", len(s.txOrder)+1)
	s.txs[hash] = &simTx{tx: tx}
	s.txOrder = append(s.txOrder, hash)
	return hash, nil
}

// TransactionReceipt mines a transaction after the configured number of polls.
func (s *Simulated) TransactionReceipt(_ context.Context, hash string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("eth_getTransactionReceipt", hash)
	t, ok := s.txs[hash]
	if !ok {
		return Receipt{}, ErrReceiptNotFound
	}
	t.polls++
	if s.neverMine || t.polls <= s.confirmAfter {
		return Receipt{}, ErrReceiptNotFound
	}
	status := uint64(1)
	if s.revert {
		status = 0
	}
	return Receipt{TxHash: hash, Status: status, BlockNumber: uint64(t.polls), From: t.tx.From, To: t.tx.To}, nil
}

// OnAccountsChanged registers fn.
func (s *Simulated) OnAccountsChanged(fn AccountsListener) Subscription {
	return s.accountL.add(fn)
}

// OnChainChanged registers fn.
func (s *Simulated) OnChainChanged(fn ChainListener) Subscription {
	return s.chainL.add(fn)
}

// RejectConnect makes the next account requests fail with 4001.
func (s *Simulated) RejectConnect(v bool) { s.set(func() { s.rejectConnect = v }) }

// HoldConnect makes account requests block until their context ends.
func (s *Simulated) HoldConnect(v bool) { s.set(func() { s.holdConnect = v }) }

// RejectSwitch makes chain switches fail with 4001.
func (s *Simulated) RejectSwitch(v bool) { s.set(func() { s.rejectSwitch = v }) }

// RejectAdd makes chain additions fail with 4001.
func (s *Simulated) RejectAdd(v bool) { s.set(func() { s.rejectAdd = v }) }

// RejectSend makes transaction signing fail with 4001.
func (s *Simulated) RejectSend(v bool) { s.set(func() { s.rejectSend = v }) }

// ConfirmAfter sets how many receipt polls return "not found" before mining.
func (s *Simulated) ConfirmAfter(polls int) { s.set(func() { s.confirmAfter = polls }) }

// NeverMine keeps every transaction pending.
func (s *Simulated) NeverMine(v bool) { s.set(func() { s.neverMine = v }) }

// Revert makes mined transactions report status 0x0.
func (s *Simulated) Revert(v bool) { s.set(func() { s.revert = v }) }

func (s *Simulated) set(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// ChangeAccounts simulates the user switching or locking accounts.
func (s *Simulated) ChangeAccounts(accounts ...string) {
	s.mu.Lock()
	s.accounts = append([]string(nil), accounts...)
	s.mu.Unlock()
	s.accountL.emit(append([]string(nil), accounts...))
}

// ChangeChain simulates the user switching network from the wallet UI.
func (s *Simulated) ChangeChain(id uint64) {
	s.mu.Lock()
	s.chainID = id
	s.known[id] = true
	s.mu.Unlock()
	s.chainL.emit(id)
}

// Calls returns every request made so far.
func (s *Simulated) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount counts requests for method.
func (s *Simulated) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ListenerCount reports registered account and chain listeners.
func (s *Simulated) ListenerCount() int {
	return s.accountL.count() + s.chainL.count()
}

// Balance returns the active account's balance in wei.
func (s *Simulated) Balance() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.balance)
}
