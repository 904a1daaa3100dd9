package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nzflyfish/riverscout/internal/clock/system"
	"github.com/nzflyfish/riverscout/internal/config"
	"github.com/nzflyfish/riverscout/internal/fetch"
	"github.com/nzflyfish/riverscout/internal/logging"
	"github.com/nzflyfish/riverscout/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Config{
		BaseURL:   "https://nzfishing.com",
		UserAgent: "riverscout-test/1.0",
		Fetch: config.FetchConfig{
			RequestDelaySeconds: 3.0,
			TimeoutSeconds:      5,
			MaxRetries:          3,
			RetryBackoffSeconds: []int{1},
			HaltThreshold:       3,
			MaxPageBytes:        1 << 20,
		},
		Cache: config.CacheConfig{Dir: t.TempDir(), TTLSeconds: 3600},
	}

	clk := system.New()
	fetcher, err := fetch.New(cfg, logging.NewCrawlLog(nil), clk, clk)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "riverscout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewServer(fetcher, st, zap.NewNop())
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Zero(t, status.Regions)
	require.False(t, status.Halted)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
