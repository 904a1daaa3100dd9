// Package fetch implements the polite-fetching state machine: robots
// compliance, rate limiting, TTL caching, retry with exponential backoff,
// and halt-on-persistent-failure. A fetch resolves through the states
// CheckPolicy -> CheckCache -> RateLimit -> NetworkCall -> ClassifyOutcome.
//
// All network-facing work is strictly sequential. One Fetcher instance owns
// its cache directory and counters; running two against the same origin is
// unsupported.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nzflyfish/riverscout/internal/config"
	"github.com/nzflyfish/riverscout/internal/logging"
)

// Options control cache interaction for a single fetch.
type Options struct {
	// UseCache consults the cache before the network. Default workflow
	// passes true.
	UseCache bool
	// ForceRefresh skips the cache lookup entirely but still writes the
	// fresh body back to the cache.
	ForceRefresh bool
}

// Fetcher composes the rate limiter, error tracker, cache, robots gate, and
// an HTTP client into a single Fetch operation.
type Fetcher struct {
	client    *http.Client
	limiter   *RateLimiter
	tracker   *ErrorTracker
	cache     *Cache
	robots    *RobotsGate
	log       *logging.CrawlLog
	clock     Clock
	pauser    Pauser
	userAgent string

	maxRetries   int
	backoff      []time.Duration
	maxPageBytes int64
}

// New wires a Fetcher from configuration. The clock and pauser are
// injectable so tests run without real elapsed time.
func New(cfg config.Config, log *logging.CrawlLog, clock Clock, pauser Pauser) (*Fetcher, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base_url: %w", err)
	}

	client := &http.Client{Timeout: cfg.Timeout()}

	cache, err := NewCache(cfg.Cache.Dir, cfg.CacheTTL(), clock)
	if err != nil {
		return nil, err
	}

	return &Fetcher{
		client:       client,
		limiter:      NewRateLimiter(cfg.RequestDelay(), cfg.JitterMax(), clock, pauser),
		tracker:      NewErrorTracker(cfg.Fetch.HaltThreshold),
		cache:        cache,
		robots:       NewRobotsGate(client, base, cfg.UserAgent, log),
		log:          log,
		clock:        clock,
		pauser:       pauser,
		userAgent:    cfg.UserAgent,
		maxRetries:   cfg.Fetch.MaxRetries,
		backoff:      cfg.RetryBackoff(),
		maxPageBytes: cfg.Fetch.MaxPageBytes,
	}, nil
}

// LoadRobots fetches the robots policy. Call once before the first Fetch;
// call again to re-fetch on demand.
func (f *Fetcher) LoadRobots(ctx context.Context) error {
	return f.robots.Load(ctx)
}

// Cache exposes the underlying cache for stats and administration.
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// Tracker exposes the consecutive-error state, mainly for tests and status
// reporting.
func (f *Fetcher) Tracker() *ErrorTracker {
	return f.tracker
}

// Fetch retrieves the page body for rawURL, honoring robots policy, the
// cache, the rate limit, and retry/halt semantics.
//
// Error taxonomy: *PolicyDeniedError and *FetchFailedError are recoverable
// per URL; *HaltError is fatal and must terminate the whole run.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	// CheckPolicy. Compliance is checked first, unconditionally: a denied
	// URL touches neither the cache nor the limiter.
	if !f.robots.IsAllowed(rawURL) {
		f.log.PolicyDenial(rawURL)
		TotalPolicyDenials.Inc()
		return nil, &PolicyDeniedError{URL: rawURL}
	}

	// CheckCache. A hit bypasses the rate limiter entirely.
	if opts.UseCache && !opts.ForceRefresh {
		if body, res := f.cache.Get(rawURL); res == CacheHit {
			TotalCacheHits.Inc()
			f.log.Request(rawURL, http.StatusOK, 0, 0, true, nil)
			return body, nil
		}
	}

	// A tracker already at threshold fails before any network activity.
	if f.tracker.ShouldHalt() {
		reason := f.tracker.HaltReason()
		f.log.Halt(reason)
		TotalHalts.Inc()
		return nil, &HaltError{Reason: reason}
	}

	return f.networkFetch(ctx, rawURL)
}

func (f *Fetcher) networkFetch(ctx context.Context, rawURL string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		// RateLimit. Applied per network call so the gap between call
		// starts never drops below the floor, retries included.
		waited := f.limiter.BeforeRequest(ctx)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch canceled: %w", err)
		}

		// NetworkCall.
		status, body, err := f.do(ctx, rawURL)
		TotalRequests.Inc()

		// ClassifyOutcome.
		outcome := OutcomeNetworkError
		if err == nil {
			outcome = classifyStatus(status)
		}
		f.tracker.RecordOutcome(outcome)

		switch outcome {
		case OutcomeSuccess:
			f.log.Request(rawURL, status, attempt, waited, false, nil)
			if perr := f.cache.Put(rawURL, body); perr != nil {
				f.log.Logger().Warn("cache write failed: " + perr.Error())
			}
			return body, nil

		case OutcomeClientError:
			// Not retried, not counted toward the halt threshold.
			f.log.Request(rawURL, status, attempt, waited, false,
				fmt.Errorf("HTTP %d", status))
			return nil, &FetchFailedError{URL: rawURL, StatusCode: status}

		default:
			TotalRequestErrors.Inc()
			if err == nil {
				err = fmt.Errorf("HTTP %d", status)
			}
			f.log.Request(rawURL, status, attempt, waited, false, err)

			if f.tracker.ShouldHalt() {
				reason := f.tracker.HaltReason()
				f.log.Halt(reason)
				TotalHalts.Inc()
				return nil, &HaltError{Reason: reason}
			}
			if attempt+1 >= f.maxRetries {
				reason := fmt.Sprintf("retries exhausted for %s after %d attempts", rawURL, attempt+1)
				f.log.Halt(reason)
				TotalHalts.Inc()
				return nil, &HaltError{Reason: reason}
			}
			f.pauser.Pause(ctx, f.backoffFor(attempt))
		}
	}
}

func (f *Fetcher) backoffFor(attempt int) time.Duration {
	if attempt >= len(f.backoff) {
		return f.backoff[len(f.backoff)-1]
	}
	return f.backoff[attempt]
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxPageBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}
