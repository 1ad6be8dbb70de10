// Package payment submits a native-asset payment, waits for it to land and
// reports it to the backend.
package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mlmnft/walletpay/internal/chain"
)

// NativePrecision is the number of decimals a native amount is rounded to.
const NativePrecision = 6

// ErrInvalidAmount rejects intents that would send nothing or a negative value.
var ErrInvalidAmount = errors.New("invalid payment amount")

// Intent is one payment attempt's immutable parameters.
type Intent struct {
	AmountUSD      decimal.Decimal `json:"amountUSD"`
	NativeAmount   decimal.Decimal `json:"nativeAmount"`
	RateUSDPerUnit decimal.Decimal `json:"priceRateUSDPerUnit"`
	Treasury       string          `json:"treasuryAddress"`
	ChainID        uint64          `json:"chainId"`
}

// NativeAmount converts a USD amount at rate into the native asset, rounded
// half away from zero to NativePrecision decimals.
func NativeAmount(amountUSD, rate decimal.Decimal) decimal.Decimal {
	return amountUSD.DivRound(rate, NativePrecision)
}

// NewIntent validates the inputs and computes the native amount.
func NewIntent(amountUSD, rate decimal.Decimal, treasury string, chainID uint64) (Intent, error) {
	if !amountUSD.IsPositive() {
		return Intent{}, fmt.Errorf("%w: amount %s USD must be positive", ErrInvalidAmount, amountUSD)
	}
	if !rate.IsPositive() {
		return Intent{}, fmt.Errorf("%w: price %s USD per unit must be positive", ErrInvalidAmount, rate)
	}
	native := NativeAmount(amountUSD, rate)
	if !native.IsPositive() {
		return Intent{}, fmt.Errorf("%w: %s USD is below the smallest payable amount", ErrInvalidAmount, amountUSD)
	}
	to, err := chain.NormalizeAddress(treasury)
	if err != nil {
		return Intent{}, fmt.Errorf("treasury address %q: %w", treasury, err)
	}
	if chainID == 0 {
		return Intent{}, errors.New("chain id is required")
	}
	return Intent{
		AmountUSD:      amountUSD,
		NativeAmount:   native,
		RateUSDPerUnit: rate,
		Treasury:       to,
		ChainID:        chainID,
	}, nil
}
