// Package cache wraps an optional Redis client used to cache dashboard
// responses. With REDIS_ADDR unset the client is nil and every call is a
// no-op, which keeps tests and small deployments broker-free.
package cache

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb *redis.Client
}

// NewFromEnv connects to REDIS_ADDR (host:port). Returns a disabled cache
// when the variable is empty.
func NewFromEnv() *Cache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return &Cache{}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return &Cache{rdb: rdb}
}

func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

// Get returns the cached body for key, or nil on miss/disabled/error.
func (c *Cache) Get(ctx context.Context, key string) []byte {
	if !c.Enabled() {
		return nil
	}
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	return bs
}

// Set stores a body under key with a TTL, best effort.
func (c *Cache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	_ = c.rdb.Set(ctx, key, body, ttl).Err()
}
