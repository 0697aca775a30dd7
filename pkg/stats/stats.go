// Package stats provides lock-free request/cache/compression counters with
// derived ratios computed on read.
package stats

import (
	"sync"
	"sync/atomic"
)

// Collector accumulates monotonic counters for the edge layer. Writes are
// fire-and-forget atomic increments safe under concurrent requests; derived
// ratios are computed in Snapshot and never stored.
type Collector struct {
	totalRequests atomic.Int64
	hits          atomic.Int64
	misses        atomic.Int64
	bytesIn       atomic.Int64
	bytesOut      atomic.Int64
	storeErrors   atomic.Int64
	encodeErrors  atomic.Int64

	mu        sync.Mutex
	perMethod map[string]*atomic.Int64
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{perMethod: make(map[string]*atomic.Int64)}
}

// RecordRequest counts one inbound request.
func (c *Collector) RecordRequest() { c.totalRequests.Add(1) }

// RecordHit counts a cache hit.
func (c *Collector) RecordHit() { c.hits.Add(1) }

// RecordMiss counts a cache miss.
func (c *Collector) RecordMiss() { c.misses.Add(1) }

// RecordStoreError counts a swallowed store error.
func (c *Collector) RecordStoreError() { c.storeErrors.Add(1) }

// RecordCompressionError counts a swallowed compression error.
func (c *Collector) RecordCompressionError() { c.encodeErrors.Add(1) }

// RecordCompression counts one compression by method with its byte sizes.
func (c *Collector) RecordCompression(method string, originalBytes, compressedBytes int) {
	c.bytesIn.Add(int64(originalBytes))
	c.bytesOut.Add(int64(compressedBytes))
	c.methodCounter(method).Add(1)
}

func (c *Collector) methodCounter(method string) *atomic.Int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	counter, ok := c.perMethod[method]
	if !ok {
		counter = &atomic.Int64{}
		c.perMethod[method] = counter
	}
	return counter
}

// Snapshot is a read-only view of the counters with derived ratios.
type Snapshot struct {
	TotalRequests     int64            `json:"total_requests"`
	Hits              int64            `json:"hits"`
	Misses            int64            `json:"misses"`
	HitRate           float64          `json:"hit_rate"`
	BytesIn           int64            `json:"bytes_in"`
	BytesOut          int64            `json:"bytes_out"`
	CompressionRatio  float64          `json:"compression_ratio"`
	CompressionCounts map[string]int64 `json:"compression_counts"`
	StoreErrors       int64            `json:"store_errors"`
	CompressionErrors int64            `json:"compression_errors"`
}

// Snapshot returns the current counter values. Ratios are derived here:
// hitRate = hits/totalRequests, compressionRatio = 1 - bytesOut/bytesIn.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		TotalRequests:     c.totalRequests.Load(),
		Hits:              c.hits.Load(),
		Misses:            c.misses.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		StoreErrors:       c.storeErrors.Load(),
		CompressionErrors: c.encodeErrors.Load(),
		CompressionCounts: make(map[string]int64),
	}
	if s.TotalRequests > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalRequests)
	}
	if s.BytesIn > 0 {
		s.CompressionRatio = 1 - float64(s.BytesOut)/float64(s.BytesIn)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for method, counter := range c.perMethod {
		s.CompressionCounts[method] = counter.Load()
	}
	return s
}
