package idempotency

import (
	"context"
	"fmt"
)

// Store reserves purchase-intent keys. Reserve returns the reference already
// bound to the key, or "" when the caller now owns the key.
type Store interface {
	Reserve(ctx context.Context, userID int64, key, reference string) (existing string, err error)
	Release(ctx context.Context, userID int64, key string) error
}

// NopStore always grants the reservation. Used when no Redis is configured,
// the DB unique index on (user_id, idempotency_key) still applies.
type NopStore struct{}

func (NopStore) Reserve(ctx context.Context, userID int64, key, reference string) (string, error) {
	return "", nil
}

func (NopStore) Release(ctx context.Context, userID int64, key string) error {
	return nil
}

func redisKey(userID int64, key string) string {
	return fmt.Sprintf("qrishub:idempotency:%d:%s", userID, key)
}
