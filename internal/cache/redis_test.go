package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_SetAndTake(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "inv-1", []byte("payload"), time.Minute))

	v, ok, err := store.Take(ctx, "inv-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), v)

	_, ok, err = store.Take(ctx, "inv-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_TakeMiss(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, ok, err := store.Take(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "inv-2", []byte("v"), 5*time.Minute))

	mr.FastForward(6 * time.Minute)

	_, ok, err := store.Take(ctx, "inv-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_HasAndDelete(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "jti-1", []byte("1"), time.Minute))

	ok, err := store.Has(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "jti-1"))

	ok, err = store.Has(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
