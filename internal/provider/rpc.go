package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mlmnft/walletpay/internal/chain"
)

const defaultWatchInterval = 4 * time.Second

// RPC is a Provider speaking EIP-1193 methods over JSON-RPC/HTTP, e.g. to a
// wallet bridge or a node with managed accounts. Account and chain events are
// synthesized by polling while someone is subscribed.
type RPC struct {
	endpoint   string
	httpClient *http.Client
	flags      Flags
	logger     *slog.Logger
	nextID     atomic.Uint64

	watchInterval time.Duration
	accounts      listenerSet[[]string]
	chains        listenerSet[uint64]

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
}

// RPCOption customizes an RPC provider.
type RPCOption func(*RPC)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RPCOption {
	return func(p *RPC) { p.httpClient = c }
}

// WithFlags sets the vendor flags the provider announces.
func WithFlags(f Flags) RPCOption {
	return func(p *RPC) { p.flags = f }
}

// WithWatchInterval sets how often accounts and chain id are polled for events.
func WithWatchInterval(d time.Duration) RPCOption {
	return func(p *RPC) { p.watchInterval = d }
}

// WithLogger sets the logger used by the event watcher.
func WithLogger(l *slog.Logger) RPCOption {
	return func(p *RPC) { p.logger = l }
}

// NewRPC builds a JSON-RPC provider for endpoint.
func NewRPC(endpoint string, opts ...RPCOption) *RPC {
	p := &RPC{
		endpoint:      endpoint,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		flags:         FlagsFor(VendorGeneric),
		logger:        slog.Default(),
		watchInterval: defaultWatchInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.accounts.onChange = func(int) { p.syncWatcher() }
	p.chains.onChange = func(int) { p.syncWatcher() }
	return p
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (p *RPC) call(ctx context.Context, method string, out any, params ...any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: p.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, string(bodyBytes))
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil || len(decoded.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// Flags returns the configured vendor flags.
func (p *RPC) Flags() Flags { return p.flags }

// RequestAccounts asks the wallet for account access.
func (p *RPC) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.call(ctx, "eth_requestAccounts", &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts lists already-authorized accounts without prompting.
func (p *RPC) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.call(ctx, "eth_accounts", &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ChainID returns the wallet's active chain.
func (p *RPC) ChainID(ctx context.Context) (uint64, error) {
	var hexID string
	if err := p.call(ctx, "eth_chainId", &hexID); err != nil {
		return 0, err
	}
	return chain.ParseHexID(hexID)
}

// SwitchChain issues wallet_switchEthereumChain.
func (p *RPC) SwitchChain(ctx context.Context, chainID uint64) error {
	return p.call(ctx, "wallet_switchEthereumChain", nil, map[string]string{"chainId": chain.HexID(chainID)})
}

// AddChain issues wallet_addEthereumChain.
func (p *RPC) AddChain(ctx context.Context, params chain.AddChainParams) error {
	return p.call(ctx, "wallet_addEthereumChain", nil, params)
}

// SendTransaction submits tx and returns its hash.
func (p *RPC) SendTransaction(ctx context.Context, tx Transaction) (string, error) {
	var hash string
	if err := p.call(ctx, "eth_sendTransaction", &hash, tx); err != nil {
		return "", err
	}
	return hash, nil
}

type rpcReceipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	BlockNumber     string `json:"blockNumber"`
	From            string `json:"from"`
	To              string `json:"to"`
}

// TransactionReceipt fetches the receipt, or ErrReceiptNotFound while pending.
func (p *RPC) TransactionReceipt(ctx context.Context, hash string) (Receipt, error) {
	var raw *rpcReceipt
	if err := p.call(ctx, "eth_getTransactionReceipt", &raw, hash); err != nil {
		return Receipt{}, err
	}
	if raw == nil {
		return Receipt{}, ErrReceiptNotFound
	}
	if raw.Status == "" {
		return Receipt{}, fmt.Errorf("%w: receipt %s has no status", ErrMalformedReceipt, hash)
	}
	status, err := chain.ParseHexQuantity(raw.Status)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: receipt %s: %w", ErrMalformedReceipt, hash, err)
	}
	out := Receipt{TxHash: raw.TransactionHash, Status: status.Uint64(), From: raw.From, To: raw.To}
	if raw.BlockNumber != "" {
		if block, err := chain.ParseHexQuantity(raw.BlockNumber); err == nil {
			out.BlockNumber = block.Uint64()
		}
	}
	return out, nil
}

// OnAccountsChanged registers fn for account changes.
func (p *RPC) OnAccountsChanged(fn AccountsListener) Subscription {
	return p.accounts.add(fn)
}

// OnChainChanged registers fn for chain changes.
func (p *RPC) OnChainChanged(fn ChainListener) Subscription {
	return p.chains.add(fn)
}

// syncWatcher runs the poll loop only while there are listeners.
func (p *RPC) syncWatcher() {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()
	active := p.accounts.count()+p.chains.count() > 0
	switch {
	case active && p.watchCancel == nil:
		ctx, cancel := context.WithCancel(context.Background())
		p.watchCancel = cancel
		go p.watch(ctx)
	case !active && p.watchCancel != nil:
		p.watchCancel()
		p.watchCancel = nil
	}
}

func (p *RPC) watch(ctx context.Context) {
	ticker := time.NewTicker(p.watchInterval)
	defer ticker.Stop()

	var (
		primed       bool
		lastAccounts []string
		lastChain    uint64
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pollCtx, cancel := context.WithTimeout(ctx, p.watchInterval)
		accounts, accErr := p.Accounts(pollCtx)
		chainID, chainErr := p.ChainID(pollCtx)
		cancel()
		if accErr != nil || chainErr != nil {
			if ctx.Err() == nil {
				p.logger.Debug("provider watch poll failed", slog.Any("accounts_error", accErr), slog.Any("chain_error", chainErr))
			}
			continue
		}

		if !primed {
			primed = true
			lastAccounts, lastChain = accounts, chainID
			continue
		}
		if !sameAccounts(accounts, lastAccounts) {
			lastAccounts = accounts
			p.accounts.emit(accounts)
		}
		if chainID != lastChain {
			lastChain = chainID
			p.chains.emit(chainID)
		}
	}
}

func sameAccounts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
