// Package logtest provides loggers for tests.
package logtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// New routes log output through t.Log so it only shows for failing or -v runs.
func New(t testing.TB) *slog.Logger {
	return slogt.New(t, slogt.Text())
}
