// Package api exposes the optional observability endpoint served while a
// scrape runs: Prometheus metrics, health, and a small status surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nzflyfish/riverscout/internal/fetch"
	"github.com/nzflyfish/riverscout/internal/store"
)

// Server wires HTTP handlers to the fetcher's counters and the store.
type Server struct {
	router  chi.Router
	fetcher *fetch.Fetcher
	store   *store.Store
	log     *zap.Logger
}

// NewServer constructs a Server with routes.
func NewServer(fetcher *fetch.Fetcher, st *store.Store, log *zap.Logger) *Server {
	s := &Server{fetcher: fetcher, store: st, log: log}

	r := chi.NewRouter()
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(10 * time.Second))
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/status", s.status)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs the server until ctx is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	Regions           int  `json:"regions"`
	Rivers            int  `json:"rivers"`
	CacheHits         int64 `json:"cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
	BytesCached       int64 `json:"bytes_cached"`
	ConsecutiveErrors int  `json:"consecutive_errors"`
	Halted            bool `json:"halted"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	regions, err := s.store.CountRegions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rivers, err := s.store.CountRivers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats := s.fetcher.Cache().Stats()
	writeJSON(w, http.StatusOK, statusResponse{
		Regions:           regions,
		Rivers:            rivers,
		CacheHits:         stats.Hits,
		CacheMisses:       stats.Misses,
		BytesCached:       stats.BytesCached,
		ConsecutiveErrors: s.fetcher.Tracker().Consecutive(),
		Halted:            s.fetcher.Tracker().ShouldHalt(),
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
