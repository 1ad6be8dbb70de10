// Package journal keeps a durable record of payment attempts and the states
// they moved through.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no attempt matches the lookup.
var ErrNotFound = errors.New("payment attempt not found")

// Record is the latest known view of one payment attempt.
type Record struct {
	ID            string          `json:"id"`
	State         string          `json:"state"`
	Purpose       string          `json:"purpose"`
	Description   string          `json:"description,omitempty"`
	AmountUSD     decimal.Decimal `json:"amountUSD"`
	NativeAmount  decimal.Decimal `json:"nativeAmount"`
	WalletAddress string          `json:"walletAddress,omitempty"`
	TxHash        string          `json:"txHash,omitempty"`
	ChainID       uint64          `json:"chainId,omitempty"`
	ErrorKind     string          `json:"errorKind,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Step is one entry of an attempt's state history.
type Step struct {
	State string    `json:"state"`
	At    time.Time `json:"at"`
}

// Journal is implemented by attempt stores (in-memory, Postgres).
type Journal interface {
	// Save upserts rec and appends its state to the history when it changed.
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	FindByTxHash(ctx context.Context, hash string) (Record, error)
	History(ctx context.Context, id string) ([]Step, error)
}
