// Package metrics exposes stratum's Prometheus collectors. promauto
// registers everything on the default registry; /metrics serves it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionsTotal counts embedding extractions by outcome.
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratum_extractions_total",
			Help: "Total number of embedding extractions",
		},
		[]string{"status"},
	)

	// ExtractionDuration observes wall time per extraction, cache
	// misses only.
	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stratum_extraction_duration_seconds",
			Help:    "Duration of embedding extractions in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// CacheHitsTotal and CacheMissesTotal track the vector cache.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_cache_hits_total",
			Help: "Vector cache hits",
		},
	)
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_cache_misses_total",
			Help: "Vector cache misses",
		},
	)

	// HTTPRequestsTotal and HTTPRequestDuration cover the API surface.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratum_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stratum_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)
