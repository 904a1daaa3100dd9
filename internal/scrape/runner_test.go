package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nzflyfish/riverscout/internal/config"
	"github.com/nzflyfish/riverscout/internal/fetch"
	"github.com/nzflyfish/riverscout/internal/logging"
	"github.com/nzflyfish/riverscout/internal/parse"
	"github.com/nzflyfish/riverscout/internal/store"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Pause(_ context.Context, delay time.Duration) {
	c.now = c.now.Add(delay)
}

const testIndexPage = `<html><body>
<div class="region-list">
  <a href="/taupo/">Taupo</a>
  <p>Central North Island fishery.</p>
</div>
</body></html>`

const testRegionPage = `<html><body>
<div class="fishing-waters">
  <a href="/taupo/tongariro-river/">Tongariro River</a>
</div>
</body></html>`

const testDetailPage = `<html><body>
<div class="fish-type">Rainbow and brown trout</div>
<div class="recommended-lures"><ul>
  <li>Pheasant Tail Nymph #16 Brown</li>
  <li>Woolly Bugger - black or olive</li>
</ul></div>
<div class="regulations">
  <p>Bag limit: 3 trout per day</p>
  <p>Season: 1 October to 30 June</p>
</div>
</body></html>`

func newTestSite(t *testing.T, robots string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	if robots != "" {
		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, robots)
		})
	}
	mux.HandleFunc("/where-to-fish/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, testIndexPage)
	})
	mux.HandleFunc("/taupo/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, testRegionPage)
	})
	mux.HandleFunc("/taupo/tongariro-river/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, testDetailPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRunner(t *testing.T, baseURL string) (*Runner, *store.Store) {
	t.Helper()

	cfg := config.Config{
		BaseURL:   baseURL,
		UserAgent: "riverscout-test/1.0",
		Fetch: config.FetchConfig{
			RequestDelaySeconds: 3.0,
			TimeoutSeconds:      5,
			MaxRetries:          3,
			RetryBackoffSeconds: []int{1, 2},
			HaltThreshold:       3,
			MaxPageBytes:        1 << 20,
		},
		Cache: config.CacheConfig{Dir: t.TempDir(), TTLSeconds: 3600},
		Discovery: config.Discovery{
			IndexPath:      "/where-to-fish/",
			RegionSelector: "div.region-list a",
			RiverSelector:  "div.fishing-waters a",
			Detail: config.DetailSelectors{
				FishType:    ".fish-type",
				Situation:   ".situation",
				Flies:       ".recommended-lures",
				Regulations: ".regulations",
			},
		},
	}

	log := logging.NewCrawlLog(nil)
	clk := newFakeClock()
	fetcher, err := fetch.New(cfg, log, clk, clk)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "riverscout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(cfg, fetcher, parse.New(cfg), st, log, clk), st
}

func TestRunFullPipeline(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t, "")
	runner, st := newTestRunner(t, srv.URL)
	ctx := context.Background()

	sum, err := runner.Run(ctx, Options{Regions: true, Rivers: true, Details: true})
	require.NoError(t, err)
	require.Equal(t, 1, sum.Regions)
	require.Equal(t, 1, sum.Rivers)
	require.Equal(t, 2, sum.Flies)
	require.Equal(t, 2, sum.Regulations)
	require.Zero(t, sum.Skipped)

	regions, err := st.Regions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	require.Equal(t, "Taupo", regions[0].Name)
	require.Equal(t, "Central North Island fishery.", regions[0].Description.String)
	require.Contains(t, regions[0].RawHTML.String, "fishing-waters")

	rivers, err := st.RiversByRegion(ctx, regions[0].ID)
	require.NoError(t, err)
	require.Len(t, rivers, 1)
	river := rivers[0]
	require.Equal(t, "Tongariro River", river.Name)
	require.Equal(t, "Rainbow and brown trout", river.Description.String)
	require.Contains(t, river.RawHTML.String, "recommended-lures")
	require.True(t, river.CrawlTimestamp.Valid)

	flies, err := st.FliesByRiver(ctx, river.ID)
	require.NoError(t, err)
	require.Len(t, flies, 2)

	// The ambiguous fly keeps its fields null end to end.
	bugger := flies[1]
	require.Equal(t, "Woolly Bugger - black or olive", bugger.RawText)
	require.Equal(t, "streamer", bugger.Category.String)
	require.False(t, bugger.Size.Valid)
	require.False(t, bugger.Color.Valid)

	regs, err := st.RegulationsByRiver(ctx, river.ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)

	meta, ok, err := st.LatestMetadata(ctx, "river", river.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, runner.SessionID(), meta.SessionID)
	require.True(t, meta.RawContentHash.Valid)
	require.True(t, meta.ParsedHash.Valid)
}

func TestRunIsIdempotentAcrossSessions(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t, "")
	runner, st := newTestRunner(t, srv.URL)
	ctx := context.Background()
	opts := Options{Regions: true, Rivers: true, Details: true, ForceRefresh: true}

	_, err := runner.Run(ctx, opts)
	require.NoError(t, err)
	_, err = runner.Run(ctx, opts)
	require.NoError(t, err)

	regions, err := st.Regions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 1)

	rivers, err := st.Rivers(ctx)
	require.NoError(t, err)
	require.Len(t, rivers, 1)

	flies, err := st.FliesByRiver(ctx, rivers[0].ID)
	require.NoError(t, err)
	require.Len(t, flies, 2)

	regs, err := st.RegulationsByRiver(ctx, rivers[0].ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
}

func TestRunSkipsDisallowedPages(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t, "User-agent: *\nDisallow: /taupo/tongariro-river/\n")
	runner, st := newTestRunner(t, srv.URL)
	ctx := context.Background()

	sum, err := runner.Run(ctx, Options{Regions: true, Rivers: true, Details: true})
	require.NoError(t, err)
	require.Equal(t, 1, sum.Regions)
	require.Equal(t, 1, sum.Rivers)
	require.Zero(t, sum.Flies)
	require.Equal(t, 1, sum.Skipped)

	rivers, err := st.Rivers(ctx)
	require.NoError(t, err)
	require.Len(t, rivers, 1)
	require.False(t, rivers[0].RawHTML.Valid, "denied detail page leaves no snapshot")
}

func TestRunCountsSkippedIndexPage(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t, "User-agent: *\nDisallow: /where-to-fish/\n")
	runner, _ := newTestRunner(t, srv.URL)

	sum, err := runner.Run(context.Background(), Options{Regions: true})
	require.NoError(t, err)
	require.Zero(t, sum.Regions)
	require.Equal(t, 1, sum.Skipped)
}

func TestRunPropagatesHalt(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	runner, _ := newTestRunner(t, srv.URL)

	_, err := runner.Run(context.Background(), Options{Regions: true})
	var halt *fetch.HaltError
	require.ErrorAs(t, err, &halt)
}

func TestRunRegionScope(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t, "")
	runner, _ := newTestRunner(t, srv.URL)
	ctx := context.Background()

	_, err := runner.Run(ctx, Options{Regions: true})
	require.NoError(t, err)

	sum, err := runner.Run(ctx, Options{Rivers: true, RegionSlug: "taupo"})
	require.NoError(t, err)
	require.Equal(t, 1, sum.Rivers)

	_, err = runner.Run(ctx, Options{Rivers: true, RegionSlug: "no-such-region"})
	require.Error(t, err)
}
