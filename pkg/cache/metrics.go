package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_cache_hits_total",
			Help: "Total number of edge cache hits",
		},
	)

	// cacheMisses tracks cache misses
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_cache_misses_total",
			Help: "Total number of edge cache misses",
		},
	)

	// storeErrors tracks swallowed store operation errors
	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_store_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "clear"
	)

	// storedBytes tracks bytes written to the store
	storedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_cache_stored_bytes_total",
			Help: "Total bytes written to the edge cache store",
		},
	)

	// invalidations tracks keys removed via tag invalidation
	invalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_cache_invalidated_keys_total",
			Help: "Total number of keys removed by tag invalidation",
		},
	)
)
