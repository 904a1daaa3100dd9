package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	cache, err := NewCache(t.TempDir(), ttl, clk)
	require.NoError(t, err)
	return cache, clk
}

func TestCachePutGet(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t, 24*time.Hour)
	require.NoError(t, cache.Put("https://example.org/a", []byte("<html>a</html>")))

	body, res := cache.Get("https://example.org/a")
	require.Equal(t, CacheHit, res)
	require.Equal(t, "<html>a</html>", string(body))
}

func TestCacheMissVersusStale(t *testing.T) {
	t.Parallel()

	cache, clk := newTestCache(t, time.Hour)

	_, res := cache.Get("https://example.org/absent")
	require.Equal(t, CacheMiss, res)

	require.NoError(t, cache.Put("https://example.org/a", []byte("x")))
	clk.advance(2 * time.Hour)
	_, res = cache.Get("https://example.org/a")
	require.Equal(t, CacheStale, res)
}

func TestCacheFreshnessFollowsInjectedClock(t *testing.T) {
	t.Parallel()

	cache, clk := newTestCache(t, time.Hour)
	require.NoError(t, cache.Put("https://example.org/a", []byte("x")))

	// The entry ages against the injected clock, not the filesystem's idea
	// of when the file was written.
	clk.advance(time.Hour - time.Second)
	_, res := cache.Get("https://example.org/a")
	require.Equal(t, CacheHit, res)

	clk.advance(time.Second)
	_, res = cache.Get("https://example.org/a")
	require.Equal(t, CacheStale, res)
}

func TestCacheStats(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t, 24*time.Hour)
	require.NoError(t, cache.Put("https://example.org/a", []byte("abcd")))

	cache.Get("https://example.org/a")
	cache.Get("https://example.org/missing")

	stats := cache.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(4), stats.BytesCached)
	require.InDelta(t, 0.5, stats.HitRate(), 0.001)
}

func TestCacheClear(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t, 24*time.Hour)
	require.NoError(t, cache.Put("https://example.org/a", []byte("x")))
	require.NoError(t, cache.Put("https://example.org/b", []byte("y")))

	removed, err := cache.Clear()
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, res := cache.Get("https://example.org/a")
	require.Equal(t, CacheMiss, res)

	stats := cache.Stats()
	require.Equal(t, int64(0), stats.Hits)
	require.Equal(t, int64(0), stats.BytesCached)
}

func TestCacheKeyStability(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t, 24*time.Hour)
	require.Equal(t, cache.path("https://example.org/a"), cache.path("https://example.org/a"))
	require.NotEqual(t, cache.path("https://example.org/a"), cache.path("https://example.org/b"))
}
