package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	accounts "github.com/helion-health/go-accounts"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDenylist(t *testing.T) (*accounts.RedisDenylist, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return accounts.NewRedisDenylist(client, ""), mr
}

func TestDenylistRevoke(t *testing.T) {
	denylist, _ := newTestDenylist(t)
	ctx := context.Background()

	revoked, err := denylist.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, denylist.Revoke(ctx, "token-a", time.Minute))

	revoked, err = denylist.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = denylist.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylistEntryExpires(t *testing.T) {
	denylist, mr := newTestDenylist(t)
	ctx := context.Background()

	require.NoError(t, denylist.Revoke(ctx, "token", time.Minute))

	mr.FastForward(2 * time.Minute)

	revoked, err := denylist.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylistNonPositiveTTL(t *testing.T) {
	denylist, _ := newTestDenylist(t)
	ctx := context.Background()

	require.NoError(t, denylist.Revoke(ctx, "token", 0))
	require.NoError(t, denylist.Revoke(ctx, "token", -time.Minute))

	revoked, err := denylist.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylistErrorsSurface(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	denylist := accounts.NewRedisDenylist(client, "")
	mr.Close()

	err := denylist.Revoke(context.Background(), "token", time.Minute)
	assert.Error(t, err)

	_, err = denylist.IsRevoked(context.Background(), "token")
	assert.Error(t, err)
}
