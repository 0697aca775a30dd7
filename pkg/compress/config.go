package compress

import (
	"fmt"

	"github.com/kottu/edge-cache/internal/pattern"
)

// Thresholds bounding which bodies are worth compressing. Tiny payloads
// waste CPU for negligible savings; huge ones bound worst-case latency.
const (
	DefaultMinSize = 1 << 10  // 1 KiB
	DefaultMaxSize = 10 << 20 // 10 MiB

	// DefaultMemoCapacity bounds the compressed-artifact memoization LRU.
	DefaultMemoCapacity = 100
)

// defaultCompressibleTypes is the allow-list applied when none is configured
// in combination with the deny-list.
var defaultCompressibleTypes = []string{
	"text/",
	"application/json",
	"application/javascript",
	"application/xml",
	"application/rss+xml",
	"application/atom+xml",
	"image/svg+xml",
}

// defaultExcludeTypes is the deny-list applied when no allow-list is
// configured: already-compressed or binary formats.
var defaultExcludeTypes = []string{
	"image/",
	"video/",
	"audio/",
	"application/zip",
	"application/gzip",
	"application/x-tar",
	"application/pdf",
}

// Config holds the compression layer configuration.
type Config struct {
	// Enabled encodings. At least one must be on for the layer to do work.
	EnableBrotli  bool
	EnableGzip    bool
	EnableDeflate bool

	// MinSize / MaxSize bound the body sizes eligible for compression.
	MinSize int
	MaxSize int

	// CompressibleTypes is the content-type allow-list. When empty, any type
	// not matching ExcludeTypes is compressible.
	CompressibleTypes []string

	// ExcludeTypes is the content-type deny-list, consulted only when
	// CompressibleTypes is empty.
	ExcludeTypes []string

	// ExcludePaths are wildcard patterns never compressed.
	ExcludePaths []string

	// CacheCompressedArtifacts enables memoization of compressed bytes.
	CacheCompressedArtifacts bool

	// MemoCapacity bounds the memoization LRU (entries).
	MemoCapacity int

	// Diagnostics adds X-Compression-Ratio / X-Original-Size /
	// X-Compressed-Size response headers.
	Diagnostics bool
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		EnableBrotli:             true,
		EnableGzip:               true,
		EnableDeflate:            true,
		MinSize:                  DefaultMinSize,
		MaxSize:                  DefaultMaxSize,
		ExcludeTypes:             defaultExcludeTypes,
		CacheCompressedArtifacts: true,
		MemoCapacity:             DefaultMemoCapacity,
	}
}

// Validate checks the configuration and returns an error describing the
// first invalid option found.
func (c Config) Validate() error {
	if c.MinSize < 0 {
		return fmt.Errorf("min_size must be >= 0 (got %d)", c.MinSize)
	}
	if c.MaxSize <= c.MinSize {
		return fmt.Errorf("max_size (%d) must be greater than min_size (%d)", c.MaxSize, c.MinSize)
	}
	if c.CacheCompressedArtifacts && c.MemoCapacity <= 0 {
		return fmt.Errorf("memo_capacity must be > 0 (got %d)", c.MemoCapacity)
	}
	for _, p := range c.ExcludePaths {
		if err := pattern.Validate(p); err != nil {
			return err
		}
	}
	return nil
}

// enabledMethods returns the configured encodings as a lookup map.
func (c Config) enabledMethods() map[Method]bool {
	return map[Method]bool{
		Brotli:  c.EnableBrotli,
		Gzip:    c.EnableGzip,
		Deflate: c.EnableDeflate,
	}
}
