package fetch

import "fmt"

// PolicyDeniedError means robots.txt forbids the URL. Recoverable: callers
// skip the URL and continue.
type PolicyDeniedError struct {
	URL string
}

func (e *PolicyDeniedError) Error() string {
	return fmt.Sprintf("disallowed by robots.txt: %s", e.URL)
}

// FetchFailedError means a single resource is unavailable (4xx). Recoverable:
// callers log and skip.
type FetchFailedError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s failed: HTTP %d", e.URL, e.StatusCode)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

// HaltError means the origin is not currently scrapable. Fatal: it must
// propagate out of the fetcher and terminate the whole run.
type HaltError struct {
	Reason string
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("halting: %s", e.Reason)
}

// Outcome classifies a completed network attempt.
type Outcome int

// Outcome values, in classification order.
const (
	OutcomeSuccess Outcome = iota
	OutcomeClientError
	OutcomeServerError
	OutcomeNetworkError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeClientError:
		return "client_error"
	case OutcomeServerError:
		return "server_error"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

func classifyStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 400:
		return OutcomeSuccess
	case status >= 400 && status < 500:
		return OutcomeClientError
	default:
		return OutcomeServerError
	}
}
