package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopStoreAlwaysGrants(t *testing.T) {
	store := NopStore{}
	existing, err := store.Reserve(context.Background(), 1, "key", "QRIS-1")
	assert.NoError(t, err)
	assert.Empty(t, existing)
	existing, err = store.Reserve(context.Background(), 1, "key", "QRIS-2")
	assert.NoError(t, err)
	assert.Empty(t, existing)
	assert.NoError(t, store.Release(context.Background(), 1, "key"))
}

func TestRedisKeyIsScopedPerUser(t *testing.T) {
	assert.NotEqual(t, redisKey(1, "abc"), redisKey(2, "abc"))
	assert.Equal(t, "qrishub:idempotency:7:abc", redisKey(7, "abc"))
}

func TestRedisStoreReserve(t *testing.T) {
	url, ok := os.LookupEnv("REDIS_URL")
	if !ok {
		t.Skip("REDIS_URL not set")
	}
	client, err := NewRedisClient(url)
	require.NoError(t, err)
	store := NewRedisStore(client, time.Minute)
	defer store.Close()

	ctx := context.Background()
	key := uuid.NewString()

	existing, err := store.Reserve(ctx, 42, key, "QRIS-first")
	require.NoError(t, err)
	assert.Empty(t, existing)

	existing, err = store.Reserve(ctx, 42, key, "QRIS-second")
	require.NoError(t, err)
	assert.Equal(t, "QRIS-first", existing)

	require.NoError(t, store.Release(ctx, 42, key))
	existing, err = store.Reserve(ctx, 42, key, "QRIS-third")
	require.NoError(t, err)
	assert.Empty(t, existing)
	store.Release(ctx, 42, key)
}
