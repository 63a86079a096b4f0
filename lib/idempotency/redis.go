package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient parses a redis:// url and validates the connection with PING.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = defaultDialTimeout
	opts.ReadTimeout = defaultReadTimeout
	opts.WriteTimeout = defaultWriteTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Reserve(ctx context.Context, userID int64, key, reference string) (string, error) {
	k := redisKey(userID, key)
	ok, err := s.client.SetNX(ctx, k, reference, s.ttl).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return "", nil
	}
	existing, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET, try once more
		ok, err = s.client.SetNX(ctx, k, reference, s.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return "", nil
		}
		return s.client.Get(ctx, k).Result()
	}
	return existing, err
}

func (s *RedisStore) Release(ctx context.Context, userID int64, key string) error {
	return s.client.Del(ctx, redisKey(userID, key)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
