// Package backend is the HTTP client for the platform's REST API. The API owns
// balances and ledgers; this package only carries requests to it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiPrefix = "/api"

var (
	// ErrBackendUnreachable covers transport failures and 5xx answers.
	ErrBackendUnreachable = errors.New("backend unreachable")
	// ErrUnauthenticated means there is no token to attach.
	ErrUnauthenticated = errors.New("not authenticated")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Is lets 5xx answers match ErrBackendUnreachable.
func (e *StatusError) Is(target error) bool {
	return target == ErrBackendUnreachable && e.Code >= http.StatusInternalServerError
}

// TokenSource yields the bearer token for the current user.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the backend REST API with the bearer token convention shared by
// every endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient builds a client for baseURL (without the /api suffix).
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("load auth token: %w", err)
	}
	if token == "" {
		return ErrUnauthenticated
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrBackendUnreachable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, Body: string(bodyBytes)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// StaticToken is a TokenSource with a fixed token.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }
