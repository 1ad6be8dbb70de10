// Package provider models an EIP-1193 wallet provider: the object a wallet
// extension injects to expose accounts, networks and transaction signing.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/mlmnft/walletpay/internal/chain"
)

// ErrReceiptNotFound means the transaction is not mined yet (or unknown to the node).
var ErrReceiptNotFound = errors.New("transaction receipt not found")

// ErrMalformedReceipt means the node returned a mined receipt without a usable status.
var ErrMalformedReceipt = errors.New("malformed transaction receipt")

// Flags are the capability markers a wallet sets on its injected object.
type Flags struct {
	Name             string
	IsMetaMask       bool
	IsTrust          bool
	IsTrustWallet    bool
	IsCoinbaseWallet bool
}

// Transaction is a native value transfer.
type Transaction struct {
	From    string
	To      string
	Value   *big.Int
	ChainID uint64
}

// MarshalJSON encodes the transaction as an eth_sendTransaction parameter.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Value   string `json:"value"`
		ChainID string `json:"chainId,omitempty"`
	}{
		From:    t.From,
		To:      t.To,
		Value:   chain.HexQuantity(t.Value),
		ChainID: chainIDField(t.ChainID),
	})
}

func chainIDField(id uint64) string {
	if id == 0 {
		return ""
	}
	return chain.HexID(id)
}

// Receipt is the subset of a transaction receipt the payment flow looks at.
type Receipt struct {
	TxHash      string
	Status      uint64
	BlockNumber uint64
	From        string
	To          string
}

// Successful reports the chain's own success indicator (status 0x1).
func (r Receipt) Successful() bool {
	return r.Status == 1
}

// AccountsListener receives the full account list after an accountsChanged event.
type AccountsListener func(accounts []string)

// ChainListener receives the new chain id after a chainChanged event.
type ChainListener func(chainID uint64)

// Subscription is a handle for a registered listener. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Provider is the wallet capability the payment flow depends on.
type Provider interface {
	Flags() Flags
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params chain.AddChainParams) error
	SendTransaction(ctx context.Context, tx Transaction) (string, error)
	TransactionReceipt(ctx context.Context, hash string) (Receipt, error)
	OnAccountsChanged(fn AccountsListener) Subscription
	OnChainChanged(fn ChainListener) Subscription
}
