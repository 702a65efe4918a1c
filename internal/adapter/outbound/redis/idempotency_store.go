package redis

import (
	"context"
	"errors"
	"time"

	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix  = "idempotency:"
	idempotencyLockSuffix = ":lock"
)

// idempotencyStore implements outbound.IdempotencyStorePort.
type idempotencyStore struct {
	client redis.UniversalClient
}

// NewIdempotencyStore creates a redis-backed idempotency store.
func NewIdempotencyStore(client redis.UniversalClient) outbound.IdempotencyStorePort {
	return &idempotencyStore{client: client}
}

func (s *idempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *idempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyKeyPrefix+key+idempotencyLockSuffix, "1", ttl).Result()
}

func (s *idempotencyStore) Unlock(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyKeyPrefix+key+idempotencyLockSuffix).Err()
}

func (s *idempotencyStore) Save(ctx context.Context, key string, record []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyKeyPrefix+key, record, ttl).Err()
}

// Compile-time check
var _ outbound.IdempotencyStorePort = (*idempotencyStore)(nil)
