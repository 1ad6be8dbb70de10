package notification

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescribeTimeoutIsNotFailure(t *testing.T) {
	m := Describe("confirmation_timeout")
	require.Contains(t, m.Body, "unknown, check explorer")
	require.NotContains(t, strings.ToLower(m.Title), "failed")
}

func TestDescribeReconciliationFailure(t *testing.T) {
	m := Describe("reconciliation_failed")
	require.Contains(t, strings.ToLower(m.Body), "payment succeeded on-chain but balance update failed, contact support")
}

func TestDescribeUnknownKind(t *testing.T) {
	m := Describe("nope")
	require.Equal(t, "nope", m.Kind)
	require.NotEmpty(t, m.Title)
}

func TestLoggerNotifierNil(t *testing.T) {
	var n *LoggerNotifier
	require.NoError(t, n.Send(context.Background(), Describe(KindPaymentConfirmed)))
}
