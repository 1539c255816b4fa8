package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soda_cache_hits_total",
			Help: "Total number of SODA cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soda_cache_misses_total",
			Help: "Total number of SODA cache misses",
		},
	)

	// CacheSize tracks bytes written to cache by layer.
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soda_cache_size_bytes",
			Help: "Bytes written to the SODA cache",
		},
		[]string{"layer"},
	)

	// NotModifiedResponses tracks 304 Not Modified responses.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soda_304_responses_total",
			Help: "Total number of SODA 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks conditional requests sent with
	// If-None-Match or If-Modified-Since.
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soda_conditional_requests_total",
			Help: "Total number of conditional SODA requests sent",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soda_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"},
	)
)
