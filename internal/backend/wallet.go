package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

// PaymentRecord reports a confirmed on-chain payment so the backend can credit it.
type PaymentRecord struct {
	TxHash        string
	WalletAddress string
	Amount        decimal.Decimal
	AmountUSD     decimal.Decimal
	Purpose       string
	Description   string
}

// MarshalJSON sends amounts as JSON numbers, which is what the API parses.
func (r PaymentRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TxHash        string      `json:"txHash"`
		WalletAddress string      `json:"walletAddress"`
		Amount        json.Number `json:"amount"`
		AmountUSD     json.Number `json:"amountUSD"`
		Purpose       string      `json:"purpose"`
		Description   string      `json:"description"`
	}{
		TxHash:        r.TxHash,
		WalletAddress: r.WalletAddress,
		Amount:        json.Number(r.Amount.String()),
		AmountUSD:     json.Number(r.AmountUSD.String()),
		Purpose:       r.Purpose,
		Description:   r.Description,
	})
}

// Balance is the backend's view of the user's wallet balance.
type Balance struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency,omitempty"`
}

// WithdrawRequest asks the backend to pay out to walletAddress.
type WithdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"walletAddress"`
}

// RecordPayment calls POST /wallet/record-payment.
func (c *Client) RecordPayment(ctx context.Context, record PaymentRecord) error {
	return c.do(ctx, http.MethodPost, "/wallet/record-payment", record, nil)
}

// Balance calls GET /wallet/balance.
func (c *Client) Balance(ctx context.Context) (Balance, error) {
	var out Balance
	if err := c.do(ctx, http.MethodGet, "/wallet/balance", nil, &out); err != nil {
		return Balance{}, err
	}
	return out, nil
}

// Withdraw calls POST /wallet/withdraw. The answer is passed through untouched.
func (c *Client) Withdraw(ctx context.Context, req WithdrawRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/wallet/withdraw", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Activate calls POST /wallet/activate with the caller's body.
func (c *Client) Activate(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/wallet/activate", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
