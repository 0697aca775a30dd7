// Package metrics provides the centralized Prometheus metrics registry for
// the edge cache. All metrics are defined in their respective packages
// (cache, compress) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the edge cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - edge_cache_hits_total (Counter): Cache hits
//   - edge_cache_misses_total (Counter): Cache misses
//   - edge_cache_store_errors_total{operation} (Counter): Swallowed store errors
//   - edge_cache_stored_bytes_total (Counter): Bytes written to the store
//   - edge_cache_invalidated_keys_total (Counter): Keys removed by tag invalidation
//
// Compression Metrics (pkg/compress):
//   - edge_compressions_total{method} (Counter): Compressed responses by method
//   - edge_compression_errors_total{method} (Counter): Compression failures by method
//   - edge_compression_bytes_saved_total (Counter): Bytes saved by compression
//   - edge_compression_memo_hits_total (Counter): Artifact memoization hits
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(edge_cache_hits_total[5m])) /
//   (sum(rate(edge_cache_hits_total[5m])) + sum(rate(edge_cache_misses_total[5m])))
//
//   # Bytes Saved by Compression
//   rate(edge_compression_bytes_saved_total[5m])
//
//   # Store Error Rate
//   rate(edge_cache_store_errors_total[5m])
