package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	rate, err := Static{Rate: decimal.NewFromInt(600)}.RateUSD(context.Background())
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.NewFromInt(600)))

	_, err = Static{}.RateUSD(context.Background())
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestHTTPFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"BNBUSDT","price":"612.35000000"}`))
	}))
	defer srv.Close()

	rate, err := NewHTTPFeed(srv.URL).RateUSD(context.Background())
	require.NoError(t, err)
	require.Equal(t, "612.35", rate.String())
}

func TestHTTPFeedErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		"body":   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`not json`)) },
		"zero":   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"price":"0"}`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := NewHTTPFeed(srv.URL).RateUSD(context.Background())
			require.Error(t, err)
		})
	}
}
