// ABOUTME: Backend selection from configuration.
// ABOUTME: Maps the cache.backend setting to a file, SQLite, Redis, or no-op backend.
package cache

import (
	"context"
	"fmt"

	"github.com/2389-research/futurefeed/internal/config"
)

// OpenBackend builds the backend named by cfg.
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch name := cfg.GetCacheBackend(); name {
	case "none":
		return NopBackend{}, nil
	case "memory":
		return NewMemoryBackend(), nil
	case "file":
		path, err := cfg.GetCachePath()
		if err != nil {
			return nil, err
		}
		return NewFileBackend(path)
	case "sqlite":
		path, err := cfg.GetCachePath()
		if err != nil {
			return nil, err
		}
		return NewSQLiteBackend(path)
	case "redis":
		if cfg.Cache.RedisURL == "" {
			return nil, fmt.Errorf("cache backend redis requires cache.redis_url")
		}
		return NewRedisBackend(ctx, cfg.Cache.RedisURL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", name)
	}
}
