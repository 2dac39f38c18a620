package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/truescope/internal/model"
)

// DiskCache persists entries as one JSON file per URL so they survive restarts
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
}

type diskEntry struct {
	URL       string         `json:"url"`
	Metadata  model.Metadata `json:"metadata"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Get returns the entry for url unless it is missing, unreadable or expired
func (c *DiskCache) Get(url string) (model.Metadata, bool) {
	path := c.path(url)

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Metadata{}, false
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.URL != url {
		return model.Metadata{}, false
	}

	if c.now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return model.Metadata{}, false
	}

	return entry.Metadata, true
}

// Set writes the entry atomically (temp file + rename)
func (c *DiskCache) Set(url string, m model.Metadata, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(diskEntry{URL: url, Metadata: m, ExpiresAt: c.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(url)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Delete removes the entry for url; a missing entry is not an error
func (c *DiskCache) Delete(url string) error {
	err := os.Remove(c.path(url))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes every entry file, leaving the directory and any other files in place
func (c *DiskCache) Clear() error {
	entries, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range entries {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *DiskCache) path(url string) string {
	return filepath.Join(c.dir, Key(url)[len("truescope:enrich:v1:"):]+".json")
}
