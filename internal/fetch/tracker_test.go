package fetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorTrackerCountsServerAndNetworkErrors(t *testing.T) {
	t.Parallel()

	tracker := NewErrorTracker(3)
	tracker.RecordOutcome(OutcomeServerError)
	tracker.RecordOutcome(OutcomeNetworkError)
	require.Equal(t, 2, tracker.Consecutive())
	require.False(t, tracker.ShouldHalt())

	tracker.RecordOutcome(OutcomeServerError)
	require.True(t, tracker.ShouldHalt())
}

func TestErrorTrackerSuccessResets(t *testing.T) {
	t.Parallel()

	// 5xx, success, 5xx, 5xx, 5xx: halts only after the final three.
	tracker := NewErrorTracker(3)
	tracker.RecordOutcome(OutcomeServerError)
	tracker.RecordOutcome(OutcomeSuccess)
	require.Equal(t, 0, tracker.Consecutive())

	tracker.RecordOutcome(OutcomeServerError)
	tracker.RecordOutcome(OutcomeServerError)
	require.False(t, tracker.ShouldHalt())
	tracker.RecordOutcome(OutcomeServerError)
	require.True(t, tracker.ShouldHalt())
}

func TestErrorTrackerClientErrorsDoNotCount(t *testing.T) {
	t.Parallel()

	tracker := NewErrorTracker(2)
	tracker.RecordOutcome(OutcomeServerError)
	tracker.RecordOutcome(OutcomeClientError)
	require.Equal(t, 1, tracker.Consecutive(), "4xx must not increment or reset the counter")

	tracker.RecordOutcome(OutcomeServerError)
	require.True(t, tracker.ShouldHalt())
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, OutcomeSuccess, classifyStatus(200))
	require.Equal(t, OutcomeSuccess, classifyStatus(301))
	require.Equal(t, OutcomeClientError, classifyStatus(404))
	require.Equal(t, OutcomeServerError, classifyStatus(503))
}
