package permissions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "seggio:permissions:"

// RedisCache shares resolved capabilities across instances. Behind a load
// balancer every instance then observes the same staleness window instead of
// each keeping its own.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed capability cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached capabilities if present. Redis errors are treated
// as cache misses so a cache outage degrades to direct spreadsheet reads.
func (c *RedisCache) Get(ctx context.Context, email string) (Capabilities, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+email).Bytes()
	if err != nil {
		return Capabilities{}, false
	}

	var caps Capabilities
	if err := json.Unmarshal(data, &caps); err != nil {
		return Capabilities{}, false
	}
	return caps, true
}

// Set stores capabilities with the configured TTL
func (c *RedisCache) Set(ctx context.Context, email string, caps Capabilities) {
	data, err := json.Marshal(caps)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKeyPrefix+email, data, c.ttl)
}

// Invalidate drops the cached entry
func (c *RedisCache) Invalidate(ctx context.Context, email string) {
	c.client.Del(ctx, redisKeyPrefix+email)
}
