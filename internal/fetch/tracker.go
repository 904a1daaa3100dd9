package fetch

import "fmt"

// ErrorTracker counts consecutive server/network errors across the whole run.
// Three failures on three different URLs in a row still trip the threshold.
type ErrorTracker struct {
	threshold   int
	consecutive int
}

// NewErrorTracker builds a tracker that trips at threshold consecutive errors.
func NewErrorTracker(threshold int) *ErrorTracker {
	return &ErrorTracker{threshold: threshold}
}

// RecordOutcome updates the consecutive-error counter. Success resets it to
// zero; server and network errors increment it; client errors leave it
// unchanged.
func (t *ErrorTracker) RecordOutcome(o Outcome) {
	switch o {
	case OutcomeSuccess:
		t.consecutive = 0
	case OutcomeServerError, OutcomeNetworkError:
		t.consecutive++
	case OutcomeClientError:
	}
}

// ShouldHalt reports whether the consecutive-error counter has reached the
// threshold.
func (t *ErrorTracker) ShouldHalt() bool {
	return t.consecutive >= t.threshold
}

// Consecutive returns the current consecutive-error count.
func (t *ErrorTracker) Consecutive() int {
	return t.consecutive
}

// HaltReason describes the trip condition for logging and the final error.
func (t *ErrorTracker) HaltReason() string {
	return fmt.Sprintf("%d consecutive server/network errors", t.consecutive)
}
