// Package bookmarks stores per-user term bookmarks. The upstream API has
// no bookmark resource, so this state lives here, keyed by user ID.
package bookmarks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements bookmark storage using Redis sets
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed bookmark store
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "bookmarks:",
	}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "bookmarks:",
	}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

// Add bookmarks a term for a user. Adding an already-bookmarked term is a
// no-op.
func (s *RedisStore) Add(ctx context.Context, userID, termID string) error {
	if err := s.client.SAdd(ctx, s.key(userID), termID).Err(); err != nil {
		return fmt.Errorf("add bookmark: %w", err)
	}
	return nil
}

// Remove drops a bookmark. Removing an absent bookmark is a no-op.
func (s *RedisStore) Remove(ctx context.Context, userID, termID string) error {
	if err := s.client.SRem(ctx, s.key(userID), termID).Err(); err != nil {
		return fmt.Errorf("remove bookmark: %w", err)
	}
	return nil
}

// List returns every bookmarked term ID for a user.
func (s *RedisStore) List(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return ids, nil
}

// Has reports whether a term is bookmarked by a user.
func (s *RedisStore) Has(ctx context.Context, userID, termID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key(userID), termID).Result()
	if err != nil {
		return false, fmt.Errorf("check bookmark: %w", err)
	}
	return ok, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
