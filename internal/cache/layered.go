package cache

import (
	"errors"
	"time"

	"github.com/ppiankov/truescope/internal/model"
)

// LayeredCache reads memory first, then disk, and writes both
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a memory cache in front of a disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get checks memory, then disk, promoting disk hits
func (c *LayeredCache) Get(url string) (model.Metadata, bool) {
	if m, found := c.memory.Get(url); found {
		return m, true
	}

	if m, found := c.disk.Get(url); found {
		_ = c.memory.Set(url, m, 0)
		return m, true
	}

	return model.Metadata{}, false
}

// Set stores in both layers
func (c *LayeredCache) Set(url string, m model.Metadata, ttl time.Duration) error {
	if err := c.memory.Set(url, m, ttl); err != nil {
		return err
	}
	return c.disk.Set(url, m, ttl)
}

// Delete removes from both layers
func (c *LayeredCache) Delete(url string) error {
	return errors.Join(c.memory.Delete(url), c.disk.Delete(url))
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}
