package fetch

import (
	"context"
	"math/rand"
	"time"
)

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// Pauser abstracts how the fetcher waits, so tests can advance a fake clock
// instead of sleeping.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// RateLimiter enforces a minimum wall-clock gap between consecutive outbound
// requests, with optional bounded random jitter. It is pure state plus
// timing; the only side effect is the pause.
type RateLimiter struct {
	delay     time.Duration
	jitterMax time.Duration
	clock     Clock
	pauser    Pauser
	jitterFn  func(max time.Duration) time.Duration

	last time.Time
}

// NewRateLimiter builds a limiter with the given minimum gap and jitter bound.
func NewRateLimiter(delay, jitterMax time.Duration, clock Clock, pauser Pauser) *RateLimiter {
	return &RateLimiter{
		delay:     delay,
		jitterMax: jitterMax,
		clock:     clock,
		pauser:    pauser,
		jitterFn:  randomJitter,
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// BeforeRequest blocks until at least the configured delay has elapsed since
// the previous request started. The first request proceeds immediately. It
// returns the time actually waited, for logging.
func (l *RateLimiter) BeforeRequest(ctx context.Context) time.Duration {
	var waited time.Duration
	if !l.last.IsZero() {
		elapsed := l.clock.Now().Sub(l.last)
		wait := l.delay - elapsed
		if wait > 0 {
			wait += l.jitterFn(l.jitterMax)
			l.pauser.Pause(ctx, wait)
			waited = wait
		}
	}
	l.last = l.clock.Now()
	return waited
}

// LastRequest reports when the most recent request started. Zero means no
// request has been made yet.
func (l *RateLimiter) LastRequest() time.Time {
	return l.last
}
