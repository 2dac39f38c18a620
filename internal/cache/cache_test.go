package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/truescope/internal/model"
)

var sample = model.Metadata{Title: "Title", SiteName: "Example"}

func TestKey(t *testing.T) {
	a := Key("https://example.com/a")
	if !strings.HasPrefix(a, "truescope:enrich:v1:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
	if a == Key("https://example.com/b") {
		t.Error("different URLs must have different keys")
	}
	if a != Key("https://example.com/a") {
		t.Error("keys must be deterministic")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	url := "https://example.com/a"

	if _, ok := c.Get(url); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Set(url, sample, 0); err != nil {
		t.Fatal(err)
	}
	if got, ok := c.Get(url); !ok || got != sample {
		t.Fatalf("expected hit with %+v, got %+v %v", sample, got, ok)
	}
	if n := c.cache.ItemCount(); n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}

	_ = c.Delete(url)
	if _, ok := c.Get(url); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	_ = c.Set("u", sample, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("u"); ok {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "enrich")
	c := NewDiskCache(dir, time.Hour)
	url := "https://example.com/a"

	if err := c.Set(url, sample, 0); err != nil {
		t.Fatal(err)
	}
	if got, ok := c.Get(url); !ok || got != sample {
		t.Fatalf("expected hit, got %+v %v", got, ok)
	}

	// A fresh instance over the same directory sees the entry
	if _, ok := NewDiskCache(dir, time.Hour).Get(url); !ok {
		t.Error("expected entry to persist across instances")
	}

	if err := c.Delete(url); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(url); err != nil {
		t.Errorf("deleting a missing entry should succeed, got %v", err)
	}
}

func TestDiskCache_Expired(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set("u", sample, time.Minute)
	c.now = func() time.Time { return now.Add(2 * time.Minute) }

	if _, ok := c.Get("u"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if _, err := os.Stat(c.path("u")); !os.IsNotExist(err) {
		t.Error("expected expired entry file to be removed")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	if err := os.WriteFile(c.path("u"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("u"); ok {
		t.Error("expected corrupt entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	_ = disk.Set("u", sample, 0)

	c := NewLayeredCache(time.Hour, dir, time.Hour)
	if got, ok := c.Get("u"); !ok || got != sample {
		t.Fatalf("expected disk hit, got %+v %v", got, ok)
	}
	if _, ok := c.memory.Get("u"); !ok {
		t.Error("expected disk hit to be promoted to memory")
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("u"); ok {
		t.Error("expected miss after clear")
	}
}

func TestNew(t *testing.T) {
	if New(model.CacheConfig{Enabled: false}) != nil {
		t.Error("expected nil cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, TTL: time.Hour}).(*MemoryCache); !ok {
		t.Error("expected memory cache without a directory")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, TTL: time.Hour, Dir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("expected layered cache with a directory")
	}
}
