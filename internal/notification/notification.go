package notification

import (
	"context"
	"log/slog"
)

const (
	// KindPaymentConfirmed indicates a payment that landed and was recorded.
	KindPaymentConfirmed = "payment_confirmed"
	// KindPaymentPending indicates a payment still being mined.
	KindPaymentPending = "payment_pending"
)

// Message describes a user-facing notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination,omitempty"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Hint        string `json:"hint,omitempty"`
}

type text struct {
	title, body, hint string
}

var catalog = map[string]text{
	"provider_unavailable":  {"Wallet not found", "No compatible wallet is available.", "Install MetaMask or Trust Wallet and reload."},
	"user_rejected":         {"Request cancelled", "The request was rejected in your wallet.", "Approve the request in your wallet to continue."},
	"wrong_network":         {"Wrong network", "Your wallet is connected to a different network.", "Switch your wallet to BNB Smart Chain and try again."},
	"insufficient_funds":    {"Insufficient funds", "Your wallet balance cannot cover the amount plus gas.", "Add funds to your wallet and try again."},
	"submission_failed":     {"Payment not sent", "The wallet could not send the transaction.", "Try again in a moment."},
	"confirmation_timeout":  {"Payment status unknown", "Confirmation is taking longer than expected. Status: unknown, check explorer.", "Look up the transaction hash in the block explorer."},
	"confirmation_failed":   {"Payment failed", "The transaction was mined but reverted.", "No funds were moved except gas. Try again."},
	"reconciliation_failed": {"Balance update failed", "Payment succeeded on-chain but balance update failed, contact support.", "Share the transaction hash with support. Do not pay again."},
	"backend_unreachable":   {"Service unavailable", "The payment service could not be reached.", "Check your connection and retry."},
	KindPaymentConfirmed:    {"Payment received", "Your payment was confirmed and recorded.", ""},
	KindPaymentPending:      {"Payment pending", "Your payment was sent and is waiting for confirmation.", ""},
}

// Describe turns an outcome kind into user-facing text. Unknown kinds get a
// generic message.
func Describe(kind string) Message {
	t, ok := catalog[kind]
	if !ok {
		t = text{"Something went wrong", "The request could not be completed.", "Try again."}
	}
	return Message{Kind: kind, Title: t.title, Body: t.body, Hint: t.hint}
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "title", message.Title, "body", message.Body)
	return nil
}
