package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository on top of Redis strings.
type RedisRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisRepository creates a RedisRepository. A zero ttl keeps keys forever.
func NewRedisRepository(client redis.Cmdable, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

// Load gets key.
func (r *RedisRepository) Load(ctx context.Context, key string) ([]byte, error) {
	blob, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return blob, nil
}

// Save sets key and refreshes its expiration.
func (r *RedisRepository) Save(ctx context.Context, key string, blob []byte) error {
	if err := r.client.Set(ctx, key, blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *RedisRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
