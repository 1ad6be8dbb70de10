// Package price supplies the USD price of one unit of the native asset.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidRate is returned when a source yields a zero or negative rate.
var ErrInvalidRate = errors.New("invalid price rate")

// Source represents a connector to a price supplier.
type Source interface {
	RateUSD(ctx context.Context) (decimal.Decimal, error)
}

// Static always returns the configured rate.
type Static struct {
	Rate decimal.Decimal
}

// RateUSD returns the fixed rate.
func (s Static) RateUSD(context.Context) (decimal.Decimal, error) {
	if !s.Rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return s.Rate, nil
}

// HTTPFeed reads a ticker endpoint answering {"price":"<decimal>"}.
type HTTPFeed struct {
	url    string
	client *http.Client
}

// NewHTTPFeed builds a feed for url.
func NewHTTPFeed(url string) *HTTPFeed {
	return &HTTPFeed{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

type ticker struct {
	Price decimal.Decimal `json:"price"`
}

// RateUSD fetches the current rate.
func (f *HTTPFeed) RateUSD(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}
	var t ticker
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return decimal.Zero, fmt.Errorf("decode price: %w", err)
	}
	if !t.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidRate, t.Price)
	}
	return t.Price, nil
}
