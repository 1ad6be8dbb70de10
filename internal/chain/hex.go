package chain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// HexID renders a chain id the way wallets expect it ("0x38").
func HexID(id uint64) string {
	return "0x" + strconv.FormatUint(id, 16)
}

// ParseHexID accepts both "0x38" and "56".
func ParseHexID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if rest, ok := cutHexPrefix(s); ok {
		id, err := strconv.ParseUint(rest, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
		}
		return id, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}

// HexQuantity encodes a JSON-RPC quantity.
func HexQuantity(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return "0x" + v.Text(16)
}

// ParseHexQuantity decodes a JSON-RPC quantity such as "0x1".
func ParseHexQuantity(s string) (*big.Int, error) {
	rest, ok := cutHexPrefix(strings.TrimSpace(s))
	if !ok || rest == "" {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	v, ok := new(big.Int).SetString(rest, 16)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}

func cutHexPrefix(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], true
	}
	return s, false
}
