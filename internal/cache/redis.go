// Package cache puts an optional Redis read-through cache in front of the
// product store.
//
// Only single-product reads are cached. Lists and searches always hit the
// database because any write could change their membership. Writes go to the
// database first and then drop the cached entry, so a failed invalidation can
// at worst serve a stale product until the TTL expires.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend is the key/value store the cache writes to.
type Backend interface {
	// Get returns the value for key. found is false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// RedisBackend implements Backend with go-redis.
type RedisBackend struct {
	client     *redis.Client
	ownsClient bool
}

// NewRedisBackend connects to rawURL (redis://[:password@]host:port/db) and
// pings it.
func NewRedisBackend(ctx context.Context, rawURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return &RedisBackend{client: client, ownsClient: true}, nil
}

// NewRedisBackendWithClient wraps an existing client. The caller keeps
// ownership and closes it.
func NewRedisBackendWithClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Backend.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

// Delete implements Backend.
func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	if !b.ownsClient {
		return nil
	}
	return b.client.Close()
}
