// Package cache fronts the upstream taxonomy lists with a Redis JSON cache.
// Approved categories, themes and languages change only through moderation,
// so short TTLs keep the lists fresh enough while sparing the upstream.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// RedisCache stores JSON-encoded values with a fixed TTL
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache around an existing Redis client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "taxonomy:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(name string) string {
	return c.prefix + name
}

// Get decodes a cached value into out. Returns ErrMiss when absent.
func (c *RedisCache) Get(ctx context.Context, name string, out any) error {
	raw, err := c.client.Get(ctx, c.key(name)).Result()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("cache decode %s: %w", name, err)
	}
	return nil
}

// Set stores a value under the cache TTL.
func (c *RedisCache) Set(ctx context.Context, name string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", name, err)
	}
	if err := c.client.Set(ctx, c.key(name), encoded, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", name, err)
	}
	return nil
}

// Invalidate drops cached entries; called after a moderation decision
// changes the taxonomy.
func (c *RedisCache) Invalidate(ctx context.Context, names ...string) error {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = c.key(name)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
