package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu         sync.RWMutex
	token      string
	user       json.RawMessage
	balance    decimal.Decimal
	hasBalance bool
}

// NewMemory builds an in-process store for development and tests.
func NewMemory() Store {
	return &memoryStore{}
}

func (s *memoryStore) SaveSession(_ context.Context, token string, user json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = append(json.RawMessage(nil), user...)
	return nil
}

func (s *memoryStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *memoryStore) User(context.Context) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.user) == 0 {
		return nil, ErrNoUser
	}
	return append(json.RawMessage(nil), s.user...), nil
}

func (s *memoryStore) SetDemoBalance(_ context.Context, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = balance
	s.hasBalance = true
	return nil
}

func (s *memoryStore) DemoBalance(context.Context) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, s.hasBalance, nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = memoryStore{}
	return nil
}
