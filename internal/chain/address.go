package chain

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrInvalidAddress is returned for anything that is not a 20-byte hex address
// or a mixed-case address whose EIP-55 checksum does not match.
var ErrInvalidAddress = errors.New("invalid address")

// ChecksumAddress returns the EIP-55 form of addr.
func ChecksumAddress(addr string) (string, error) {
	rest, ok := cutHexPrefix(addr)
	if !ok || len(rest) != 40 {
		return "", ErrInvalidAddress
	}
	lower := strings.ToLower(rest)
	if _, err := hex.DecodeString(lower); err != nil {
		return "", ErrInvalidAddress
	}

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out), nil
}

// NormalizeAddress validates addr and returns its checksummed form. All-lower
// and all-upper inputs carry no checksum and are accepted as is.
func NormalizeAddress(addr string) (string, error) {
	sum, err := ChecksumAddress(addr)
	if err != nil {
		return "", err
	}
	rest, _ := cutHexPrefix(addr)
	if rest != strings.ToLower(rest) && rest != strings.ToUpper(rest) && "0x"+rest != sum {
		return "", ErrInvalidAddress
	}
	return sum, nil
}

// SameAddress compares two addresses ignoring checksum case.
func SameAddress(a, b string) bool {
	ra, _ := cutHexPrefix(a)
	rb, _ := cutHexPrefix(b)
	return ra != "" && strings.EqualFold(ra, rb)
}
