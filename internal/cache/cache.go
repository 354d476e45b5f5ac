// Package cache provides a small Redis-backed read-side cache for rollups and
// busy-range queries. The cache is strictly best-effort: when Redis is absent
// or unreachable every operation degrades to a miss and callers fall through
// to the repository.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"wheelshare-backend/internal/config"
	"wheelshare-backend/internal/logger"
)

type Cache struct {
	rdb *redis.Client
}

// New connects to Redis using the provided settings. It returns a disabled
// cache (never nil) when the address is empty or the server cannot be reached,
// so callers degrade gracefully instead of branching on nil.
func New(cfg config.RedisConfig) *Cache {
	if cfg.Addr == "" {
		return &Cache{}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, caching disabled", "addr", cfg.Addr, "error", err)
		return &Cache{}
	}
	return &Cache{rdb: rdb}
}

// Enabled reports whether a Redis connection is active.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetJSON loads the value at key into v, reporting whether it was a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	if !c.Enabled() {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("cache entry corrupt, dropping", "key", key, "error", err)
		c.rdb.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores v at key with the given TTL. Failures are logged, never
// surfaced.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes keys after a mutation. Failures are logged only; a stale
// entry ages out through its TTL.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("cache invalidation failed", "keys", keys, "error", err)
	}
}
