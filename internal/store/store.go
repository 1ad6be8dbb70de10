// Package store persists the client-side state of the signed-in user: the
// backend auth token, the user profile and the cached display balance.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNoUser is returned when no user is signed in.
var ErrNoUser = errors.New("no user signed in")

// Store is implemented by client state backends (Redis, in-memory).
type Store interface {
	// SaveSession stores the token and profile of a signed-in user.
	SaveSession(ctx context.Context, token string, user json.RawMessage) error
	// Token returns the bearer token, or "" when signed out.
	Token(ctx context.Context) (string, error)
	User(ctx context.Context) (json.RawMessage, error)
	SetDemoBalance(ctx context.Context, balance decimal.Decimal) error
	// DemoBalance reports the cached balance and whether one was stored.
	DemoBalance(ctx context.Context) (decimal.Decimal, bool, error)
	// Clear removes everything; it is the logout operation.
	Clear(ctx context.Context) error
}
