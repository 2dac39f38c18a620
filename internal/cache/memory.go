package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/truescope/internal/model"
)

// MemoryCache keeps entries in process with per-entry expiry
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache; cleanupInterval controls expired-entry sweeps
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get returns the cached metadata for url
func (c *MemoryCache) Get(url string) (model.Metadata, bool) {
	if val, found := c.cache.Get(Key(url)); found {
		if m, ok := val.(model.Metadata); ok {
			return m, true
		}
	}
	return model.Metadata{}, false
}

// Set stores m; a zero ttl uses the cache default
func (c *MemoryCache) Set(url string, m model.Metadata, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(Key(url), m, ttl)
	return nil
}

// Delete removes the entry for url
func (c *MemoryCache) Delete(url string) error {
	c.cache.Delete(Key(url))
	return nil
}

// Clear removes all entries
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
