// Package cache remembers enrichment results per URL.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/truescope/internal/model"
)

// Cache stores preview metadata keyed by page URL
type Cache interface {
	Get(url string) (model.Metadata, bool)
	Set(url string, m model.Metadata, ttl time.Duration) error
	Delete(url string) error
	Clear() error
}

// Key derives the storage key for a URL
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "truescope:enrich:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. A disabled config yields nil.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.TTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL)
}
