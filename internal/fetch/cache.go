package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nzflyfish/riverscout/internal/hash/sha256"
)

// CacheResult distinguishes the three lookup outcomes. Stale entries are
// treated as misses for fetching purposes but reported separately.
type CacheResult int

// Cache lookup outcomes.
const (
	CacheHit CacheResult = iota
	CacheMiss
	CacheStale
)

func (r CacheResult) String() string {
	switch r {
	case CacheHit:
		return "hit"
	case CacheMiss:
		return "miss"
	case CacheStale:
		return "stale"
	default:
		return "unknown"
	}
}

// CacheStats reports cumulative counters since Cache creation.
type CacheStats struct {
	Hits        int64
	Misses      int64
	Total       int64
	Entries     int64
	BytesCached int64
}

// HitRate returns hits over total lookups, or 0 when no lookups happened.
func (s CacheStats) HitRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Total)
}

// Cache is a content-addressed, TTL-expiring store of fetched pages, keyed
// by a stable hash of the request URL. One file per entry; freshness is the
// file modification time. It is private to a single Fetcher instance.
type Cache struct {
	dir    string
	ttl    time.Duration
	clock  Clock
	hasher *sha256.Hasher

	hits   int64
	misses int64
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, ttl time.Duration, clock Clock) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &Cache{
		dir:    dir,
		ttl:    ttl,
		clock:  clock,
		hasher: sha256.New(),
	}, nil
}

func (c *Cache) path(url string) string {
	return filepath.Join(c.dir, c.hasher.Hash([]byte(url))+".html")
}

// Get returns the cached body when an entry exists and is within TTL. Stale
// and absent entries both count as misses in the stats but are reported
// distinctly in the result.
func (c *Cache) Get(url string) ([]byte, CacheResult) {
	path := c.path(url)
	info, err := os.Stat(path)
	if err != nil {
		c.misses++
		return nil, CacheMiss
	}
	age := c.clock.Now().Sub(info.ModTime())
	if age >= c.ttl {
		c.misses++
		return nil, CacheStale
	}
	body, err := os.ReadFile(path)
	if err != nil {
		c.misses++
		return nil, CacheMiss
	}
	c.hits++
	return body, CacheHit
}

// Put stores content for url, stamping the clock's now as the freshness
// reference. The mtime must come from the same clock Get ages against, or
// TTL decisions drift whenever the injected clock and the filesystem
// disagree.
func (c *Cache) Put(url string, content []byte) error {
	path := c.path(url)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	now := c.clock.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("stamp cache entry: %w", err)
	}
	return nil
}

// Clear removes all entries and returns how many were deleted. Counters are
// reset.
func (c *Cache) Clear() (int, error) {
	entries, err := filepath.Glob(filepath.Join(c.dir, "*.html"))
	if err != nil {
		return 0, fmt.Errorf("list cache entries: %w", err)
	}
	removed := 0
	for _, path := range entries {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove cache entry %s: %w", path, err)
		}
		removed++
	}
	c.hits = 0
	c.misses = 0
	return removed, nil
}

// Stats reports cumulative counters and the entries currently on disk.
func (c *Cache) Stats() CacheStats {
	var count, bytes int64
	entries, err := filepath.Glob(filepath.Join(c.dir, "*.html"))
	if err == nil {
		for _, path := range entries {
			if info, serr := os.Stat(path); serr == nil {
				count++
				bytes += info.Size()
			}
		}
	}
	return CacheStats{
		Hits:        c.hits,
		Misses:      c.misses,
		Total:       c.hits + c.misses,
		Entries:     count,
		BytesCached: bytes,
	}
}
