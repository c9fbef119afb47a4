package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idem:v1:"

// Store tracks the lifecycle of client-supplied idempotency keys:
// unseen -> pending -> cached (or released on handler failure). Begin must
// be atomic with respect to concurrent identical keys.
type Store interface {
	// Begin marks the key pending. Returns false if the key is already
	// pending or cached within its window.
	Begin(ctx context.Context, key string) (bool, error)
	// Complete replaces the pending mark with the outcome fingerprint and
	// restarts the expiry window.
	Complete(ctx context.Context, key, fingerprint string) error
	// Release frees the key so a retry after a failed handler may proceed.
	Release(ctx context.Context, key string) error
}

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore builds the production store. SET NX gives the atomic
// check-then-mark-pending step.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl}
}

func (s *redisStore) Begin(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, "pending", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency begin: %w", err)
	}
	return ok, nil
}

func (s *redisStore) Complete(ctx context.Context, key, fingerprint string) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, fingerprint, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency complete: %w", err)
	}
	return nil
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}
