package infra

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())

	_, err = NewRedisClient(context.Background(), "", "walletpay")
	require.Error(t, err)
	_, err = NewRedisClient(context.Background(), "not a url", "walletpay")
	require.Error(t, err)
}
