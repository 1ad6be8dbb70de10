package payment

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Status of a submitted payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// ErrAlreadyResolved guards the single pending->terminal transition.
var ErrAlreadyResolved = errors.New("receipt already resolved")

// Receipt tracks a submitted transaction.
type Receipt struct {
	TxHash       string          `json:"txHash"`
	Status       Status          `json:"status"`
	From         string          `json:"fromAddress"`
	To           string          `json:"toAddress"`
	NativeAmount decimal.Decimal `json:"nativeAmount"`
	AmountUSD    decimal.Decimal `json:"amountUSD"`
	ChainID      uint64          `json:"chainId"`
	BlockNumber  uint64          `json:"blockNumber,omitempty"`
}

// Terminal reports whether the receipt left pending.
func (r Receipt) Terminal() bool {
	return r.Status == StatusConfirmed || r.Status == StatusFailed
}

// Resolve moves a pending receipt to confirmed or failed.
func (r Receipt) Resolve(success bool, block uint64) (Receipt, error) {
	if r.Status != StatusPending {
		return r, ErrAlreadyResolved
	}
	r.Status = StatusFailed
	if success {
		r.Status = StatusConfirmed
	}
	r.BlockNumber = block
	return r, nil
}
