package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	keyPrefix      = "walletpay:client:"
	tokenKey       = keyPrefix + "token"
	userKey        = keyPrefix + "user"
	demoBalanceKey = keyPrefix + "demo_balance"
)

// RedisStore keeps client state in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedis builds a Redis-backed store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// SaveSession writes token and user atomically.
func (s *RedisStore) SaveSession(ctx context.Context, token string, user json.RawMessage) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey, token, 0)
		pipe.Set(ctx, userKey, []byte(user), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Token returns the stored token, or "" when none is stored.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// User returns the stored profile.
func (s *RedisStore) User(ctx context.Context) (json.RawMessage, error) {
	raw, err := s.client.Get(ctx, userKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoUser
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// SetDemoBalance caches the last known balance.
func (s *RedisStore) SetDemoBalance(ctx context.Context, balance decimal.Decimal) error {
	return s.client.Set(ctx, demoBalanceKey, balance.String(), 0).Err()
}

// DemoBalance returns the cached balance.
func (s *RedisStore) DemoBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	raw, err := s.client.Get(ctx, demoBalanceKey).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("decode demo balance: %w", err)
	}
	return balance, true, nil
}

// Clear deletes all client keys.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, tokenKey, userKey, demoBalanceKey).Err()
}
