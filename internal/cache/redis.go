// ABOUTME: Redis cache backend for sharing the feed cache between machines.
// ABOUTME: Keys are namespaced; Redis-side expiry is not used because validity is checked on read.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisNamespace = "futurefeed:"

// RedisBackend wraps a Redis client.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to the Redis server at url and verifies it with a ping.
func NewRedisBackend(ctx context.Context, url string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBackend{client: client}, nil
}

func (r *RedisBackend) namespaceKey(key string) string {
	return redisNamespace + key
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.Get(ctx, r.namespaceKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return payload, err
}

func (r *RedisBackend) Set(ctx context.Context, key string, payload []byte) error {
	return r.client.Set(ctx, r.namespaceKey(key), payload, 0).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.namespaceKey(key)).Err()
}

// Clear deletes every namespaced key using SCAN so large keyspaces are not blocked.
func (r *RedisBackend) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisNamespace+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
