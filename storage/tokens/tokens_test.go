package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestStores(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			revoked, err := store.IsRevoked(ctx, "abc")
			require.NoError(t, err)
			assert.False(t, revoked)

			require.NoError(t, store.Revoke(ctx, "abc", time.Now().Add(time.Hour)))
			revoked, err = store.IsRevoked(ctx, "abc")
			require.NoError(t, err)
			assert.True(t, revoked)

			// expired tokens need no revocation
			require.NoError(t, store.Revoke(ctx, "old", time.Now().Add(-time.Minute)))
			revoked, err = store.IsRevoked(ctx, "old")
			require.NoError(t, err)
			assert.False(t, revoked)

			revoked, err = store.IsRevoked(ctx, "")
			require.NoError(t, err)
			assert.False(t, revoked)
		})
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(10*time.Minute)))
	assert.True(t, mr.Exists(keyPrefix+"jti-1"))

	mr.FastForward(11 * time.Minute)
	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Revoke(ctx, "jti-1", now.Add(time.Minute)))

	revoked, _ := store.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = store.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked)

	// expired entries are purged on the next revocation
	require.NoError(t, store.Revoke(ctx, "jti-2", now.Add(time.Minute)))
	assert.Len(t, store.revoked, 1)
}
