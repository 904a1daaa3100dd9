package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks the number of HTTP requests dispatched.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riverscout_requests_total",
		Help: "The total number of HTTP requests sent.",
	})
	// TotalRequestErrors tracks requests that resulted in a server or network error.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riverscout_request_errors_total",
		Help: "The total number of failed HTTP requests.",
	})
	// TotalCacheHits tracks fetches served from the local cache.
	TotalCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riverscout_cache_hits_total",
		Help: "The total number of fetches served from cache.",
	})
	// TotalPolicyDenials tracks URLs blocked by robots.txt.
	TotalPolicyDenials = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riverscout_policy_denials_total",
		Help: "The total number of URLs denied by robots.txt.",
	})
	// TotalHalts tracks fatal halt conditions.
	TotalHalts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riverscout_halts_total",
		Help: "The total number of times the scraper halted on persistent failure.",
	})
)
