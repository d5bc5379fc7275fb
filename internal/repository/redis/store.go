package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adserver/domain"

	"github.com/redis/go-redis/v9"
)

// Store is the typed key/value view of Redis consumed by the dynamic
// config registry and the caches. Missing keys surface as domain.ErrNotFound.
type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) GetString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", wrap(err, "get string", key)
	}
	return val, nil
}

func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		return 0, wrap(err, "get int", key)
	}
	return val, nil
}

func (s *Store) GetFloat(ctx context.Context, key string) (float64, error) {
	val, err := s.client.Get(ctx, key).Float64()
	if err != nil {
		return 0, wrap(err, "get float", key)
	}
	return val, nil
}

// GetHash returns every field of a hash. A missing key yields an empty map.
func (s *Store) GetHash(ctx context.Context, key string) (map[string]string, error) {
	val, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrap(err, "get hash", key)
	}
	return val, nil
}

func (s *Store) SetHashField(ctx context.Context, key, field, value string) error {
	if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
		return wrap(err, "set hash field", key)
	}
	return nil
}

func (s *Store) SetWithExpiry(ctx context.Context, key, value string, ttlSeconds int) error {
	ttl := time.Duration(ttlSeconds) * time.Second
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrap(err, "set with expiry", key)
	}
	return nil
}

func wrap(err error, op, key string) error {
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s %q: %w", op, key, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to %s %q in Redis: %w", op, key, err)
}
