package fetch

import (
	"context"
	"time"
)

// fakeClock satisfies Clock and Pauser. Pauses advance the clock instead of
// sleeping, so timing behavior is deterministic.
type fakeClock struct {
	now    time.Time
	pauses []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Pause(_ context.Context, delay time.Duration) {
	c.pauses = append(c.pauses, delay)
	c.now = c.now.Add(delay)
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func (c *fakeClock) totalPaused() time.Duration {
	var total time.Duration
	for _, p := range c.pauses {
		total += p
	}
	return total
}
