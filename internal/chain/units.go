package chain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToWei scales a decimal amount of the native asset to its smallest unit.
func ToWei(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FromWei is the inverse of ToWei.
func FromWei(wei *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -int32(decimals))
}
