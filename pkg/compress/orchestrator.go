package compress

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kottu/edge-cache/internal/pattern"
)

// Diagnostic response headers (enabled via Config.Diagnostics).
const (
	HeaderCompressionRatio = "X-Compression-Ratio"
	HeaderOriginalSize     = "X-Original-Size"
	HeaderCompressedSize   = "X-Compressed-Size"
)

// Orchestrator is the response-facing entry point of the compression layer:
// it decides whether to encode a response and with which method, and injects
// the resulting headers.
//
// Compression is best-effort. On any failure the original uncompressed
// response is returned; nothing here ever fails a request.
type Orchestrator struct {
	cfg         Config
	enabled     map[Method]bool
	compressors map[Method]Compressor
	memo        *artifactCache
	logger      zerolog.Logger
	onError     func()
}

// New creates an orchestrator from a validated configuration. Compressor
// implementations are bound here, never selected at call time.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compression config: %w", err)
	}

	compressors := make(map[Method]Compressor)
	for method, on := range cfg.enabledMethods() {
		if !on {
			continue
		}
		c, err := NewCompressor(method)
		if err != nil {
			return nil, err
		}
		compressors[method] = c
	}

	o := &Orchestrator{
		cfg:         cfg,
		enabled:     cfg.enabledMethods(),
		compressors: compressors,
		logger:      log.With().Str("component", "compress").Logger(),
	}

	if cfg.CacheCompressedArtifacts {
		memo, err := newArtifactCache(cfg.MemoCapacity)
		if err != nil {
			return nil, fmt.Errorf("artifact cache: %w", err)
		}
		o.memo = memo
	}

	return o, nil
}

// OnError registers a callback invoked once per swallowed compression
// failure, in addition to the Prometheus counters. Must be set before serving.
func (o *Orchestrator) OnError(fn func()) {
	o.onError = fn
}

// Handle compresses a response when the request and response qualify,
// rewriting Content-Encoding, Content-Length, and Vary. The original
// response is returned unchanged whenever compression is skipped or fails.
func (o *Orchestrator) Handle(r *http.Request, resp *http.Response) *http.Response {
	if !o.shouldCompress(r, resp) {
		return resp
	}

	method := Negotiate(r.Header.Get("Accept-Encoding"), o.enabled)
	if method == Identity {
		return resp
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		o.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to read response body for compression")
		return resp
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	// Content-Length preconditions can lie; re-check against the real body.
	if len(body) < o.cfg.MinSize || len(body) > o.cfg.MaxSize {
		return resp
	}

	compressed, err := o.compress(body, method)
	if err != nil {
		compressionErrors.WithLabelValues(string(method)).Inc()
		if o.onError != nil {
			o.onError()
		}
		o.logger.Warn().Err(err).
			Str("method", string(method)).
			Str("path", r.URL.Path).
			Msg("Compression failed, serving uncompressed")
		return resp
	}

	compressions.WithLabelValues(string(method)).Inc()
	bytesSaved.Add(float64(len(body) - len(compressed)))

	resp.Body = io.NopCloser(bytes.NewReader(compressed))
	resp.ContentLength = int64(len(compressed))
	resp.Header.Set("Content-Encoding", string(method))
	resp.Header.Set("Content-Length", strconv.Itoa(len(compressed)))
	resp.Header.Add("Vary", "Accept-Encoding")

	if o.cfg.Diagnostics {
		ratio := 1 - float64(len(compressed))/float64(len(body))
		resp.Header.Set(HeaderCompressionRatio, strconv.FormatFloat(ratio, 'f', 4, 64))
		resp.Header.Set(HeaderOriginalSize, strconv.Itoa(len(body)))
		resp.Header.Set(HeaderCompressedSize, strconv.Itoa(len(compressed)))
	}

	return resp
}

// compress encodes body with the given method, consulting the memoization
// cache for identical bodies first.
func (o *Orchestrator) compress(body []byte, method Method) ([]byte, error) {
	if o.memo != nil {
		if artifact, ok := o.memo.get(body, method); ok {
			memoHits.Inc()
			return artifact.Data, nil
		}
	}

	compressor, ok := o.compressors[method]
	if !ok {
		return nil, fmt.Errorf("method %q not enabled", method)
	}

	compressed, err := compressor.Compress(body)
	if err != nil {
		return nil, err
	}

	if o.memo != nil {
		o.memo.put(body, Artifact{Data: compressed, Method: method})
	}
	return compressed, nil
}

// shouldCompress evaluates the preconditions that must all hold before any
// compression work happens: method, prior encoding, content type, path
// exclusions, and declared size bounds.
func (o *Orchestrator) shouldCompress(r *http.Request, resp *http.Response) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != string(Identity) {
		return false
	}

	if pattern.MatchAny(r.URL.Path, o.cfg.ExcludePaths) {
		return false
	}

	if !o.compressibleType(resp.Header.Get("Content-Type")) {
		return false
	}

	// Declared length is advisory; the real body is re-checked after read.
	if resp.ContentLength > 0 {
		if resp.ContentLength < int64(o.cfg.MinSize) || resp.ContentLength > int64(o.cfg.MaxSize) {
			return false
		}
	}

	return true
}

// compressibleType applies the allow-list when configured, otherwise the
// deny-list. An absent content type is never compressed.
func (o *Orchestrator) compressibleType(contentType string) bool {
	if contentType == "" {
		return false
	}
	ct := strings.ToLower(contentType)

	if len(o.cfg.CompressibleTypes) > 0 {
		return matchesType(ct, o.cfg.CompressibleTypes)
	}

	allow := defaultCompressibleTypes
	deny := o.cfg.ExcludeTypes
	if len(deny) == 0 {
		deny = defaultExcludeTypes
	}
	if matchesType(ct, deny) {
		// SVG is the one image type worth compressing.
		return matchesType(ct, allow)
	}
	return true
}

func matchesType(contentType string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
