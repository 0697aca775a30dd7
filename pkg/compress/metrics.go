package compress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// compressions tracks successful compressions by method
	compressions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_compressions_total",
			Help: "Total number of compressed responses by method",
		},
		[]string{"method"}, // "br", "gzip", "deflate"
	)

	// compressionErrors tracks swallowed codec errors
	compressionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_compression_errors_total",
			Help: "Total number of compression failures by method",
		},
		[]string{"method"},
	)

	// bytesSaved tracks bytes saved by compression
	bytesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_compression_bytes_saved_total",
			Help: "Total bytes saved by response compression",
		},
	)

	// memoHits tracks artifact memoization hits
	memoHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_compression_memo_hits_total",
			Help: "Total number of compressed artifact memoization hits",
		},
	)
)
