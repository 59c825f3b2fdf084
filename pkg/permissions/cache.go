package permissions

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultTTL bounds how long resolved capabilities may be served without a
// fresh spreadsheet read.
const DefaultTTL = 60 * time.Second

// Cache stores resolved capabilities per lowercased email. Implementations
// must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, email string) (Capabilities, bool)
	Set(ctx context.Context, email string, caps Capabilities)
	Invalidate(ctx context.Context, email string)
}

// MemoryCache is an in-process TTL cache for single-instance deployments
type MemoryCache struct {
	cache *lru.LRU[string, Capabilities]
}

// NewMemoryCache creates a TTL-bounded LRU cache
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		cache: lru.NewLRU[string, Capabilities](maxEntries, nil, ttl),
	}
}

func (c *MemoryCache) Get(ctx context.Context, email string) (Capabilities, bool) {
	return c.cache.Get(email)
}

func (c *MemoryCache) Set(ctx context.Context, email string, caps Capabilities) {
	c.cache.Add(email, caps)
}

func (c *MemoryCache) Invalidate(ctx context.Context, email string) {
	c.cache.Remove(email)
}

// NopCache disables caching; every Resolve hits the spreadsheet
type NopCache struct{}

func (NopCache) Get(ctx context.Context, email string) (Capabilities, bool) {
	return Capabilities{}, false
}
func (NopCache) Set(ctx context.Context, email string, caps Capabilities) {}
func (NopCache) Invalidate(ctx context.Context, email string)             {}
