package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRevokeAndExpire(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	r := NewRevoker(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	require.True(t, r.Enabled())

	ctx := context.Background()
	require.NoError(t, r.Revoke(ctx, "jti-1", 2*time.Second))

	ok, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)

	other, err := r.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, other)

	m.FastForward(3 * time.Second)

	ok, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRevoke_IgnoresExpiredTTLAndRejectsEmptyID(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	r := NewRevoker(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "jti-old", 0))
	require.False(t, m.Exists(keyPrefix+"jti-old"))
	require.Error(t, r.Revoke(ctx, "", time.Minute))
}

func TestRevoker_NoClientIsNoop(t *testing.T) {
	r := NewRevoker(nil)
	require.False(t, r.Enabled())

	ctx := context.Background()
	require.NoError(t, r.Revoke(ctx, "jti", time.Minute))
	ok, err := r.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	require.False(t, ok)

	var nilRevoker *Revoker
	require.False(t, nilRevoker.Enabled())
}

func TestIsRevoked_RedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	r := NewRevoker(redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1}))
	m.Close()

	_, err = r.IsRevoked(context.Background(), "jti")
	require.Error(t, err)
}
