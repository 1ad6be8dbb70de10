package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EIP-1193 and JSON-RPC error codes wallets return.
const (
	CodeUserRejected   = 4001
	CodeUnauthorized   = 4100
	CodeUnsupported    = 4200
	CodeDisconnected   = 4900
	CodeUnknownChain   = 4902
	CodeRequestPending = -32002
	CodeServerError    = -32000
	CodeInternal       = -32603
)

// RPCError is a JSON-RPC error object returned by the wallet.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Code extracts the effective error code. Some mobile wallets wrap 4902 in a
// -32603 whose data carries originalError.code.
func Code(err error) (int, bool) {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return 0, false
	}
	if rpcErr.Code == CodeInternal && len(rpcErr.Data) > 0 {
		var data struct {
			OriginalError struct {
				Code int `json:"code"`
			} `json:"originalError"`
		}
		if json.Unmarshal(rpcErr.Data, &data) == nil && data.OriginalError.Code != 0 {
			return data.OriginalError.Code, true
		}
	}
	return rpcErr.Code, true
}

// IsUserRejected reports a 4001 from the wallet.
func IsUserRejected(err error) bool {
	code, ok := Code(err)
	return ok && code == CodeUserRejected
}

// IsUnknownChain reports that the wallet does not know the requested chain.
func IsUnknownChain(err error) bool {
	code, ok := Code(err)
	return ok && code == CodeUnknownChain
}

// IsInsufficientFunds matches the node's "insufficient funds" rejection.
func IsInsufficientFunds(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(strings.ToLower(rpcErr.Message), "insufficient funds")
}
