// Package metrics provides the centralized Prometheus metrics registry
// reference for crimefetch. All metrics are defined in their respective
// packages (soda, fetch, cache, ratelimit) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by crimefetch.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/soda):
//   - soda_requests_total{operation, status} (Counter): Requests by operation (count, bulk, page) and HTTP status
//   - soda_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - soda_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Fetch Metrics (pkg/fetch):
//   - fetch_pages_total (Counter): Pages fetched during paginated retrieval
//   - fetch_records_total (Counter): Records retrieved across all operations
//   - fetch_fallbacks_total (Counter): Bulk results discarded in favor of pagination
//
// Cache Metrics (pkg/cache):
//   - soda_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - soda_cache_misses_total (Counter): Cache misses
//   - soda_cache_size_bytes{layer="redis"} (Gauge): Bytes written to cache
//   - soda_304_responses_total (Counter): 304 Not Modified responses
//   - soda_conditional_requests_total (Counter): Conditional requests sent
//   - soda_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pacing Metrics (pkg/ratelimit):
//   - soda_pacer_wait_seconds (Histogram): Time spent waiting between page requests
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(soda_cache_hits_total[5m])) /
//   (sum(rate(soda_cache_hits_total[5m])) + sum(rate(soda_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(soda_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(soda_request_duration_seconds_bucket[5m]))
