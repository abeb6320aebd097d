// Package metrics registers the Prometheus metrics exported by catalogd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts reads served from a fresh cache entry.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogd_cache_hits_total",
		Help: "Cache reads answered from a fresh entry.",
	})

	// CacheMisses counts reads that found nothing usable, including stale
	// and corrupt entries.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogd_cache_misses_total",
		Help: "Cache reads that found no fresh entry.",
	})

	// CacheStoreErrors counts absorbed storage faults labelled by operation
	// ("get", "set", "delete", "keys", "decode", "encode").
	CacheStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogd_cache_store_errors_total",
			Help: "Storage faults swallowed by the cache layer.",
		},
		[]string{"op"},
	)

	// CacheEvictions counts entries removed because they were stale or corrupt.
	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogd_cache_evictions_total",
		Help: "Entries removed for being expired or unreadable.",
	})

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogd_upstream_requests_total",
			Help: "Requests sent to the course API, by endpoint and status code (0 = transport error).",
		},
		[]string{"endpoint", "code"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogd_upstream_request_duration_seconds",
			Help:    "Course API round-trip latency in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)
)
