// Package edge wires the caching and compression orchestrators around an
// origin http.Handler and exposes the administrative operations.
package edge

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/kottu/edge-cache/pkg/cache"
	"github.com/kottu/edge-cache/pkg/compress"
	"github.com/kottu/edge-cache/pkg/stats"
)

// Handler is the edge layer in front of an origin handler. Cache hits skip
// the origin entirely; concurrent misses on the same key share a single
// origin invocation and store write via single-flight.
type Handler struct {
	cache    *cache.Orchestrator
	compress *compress.Orchestrator
	stats    *stats.Collector
	flight   singleflight.Group
	logger   zerolog.Logger
}

// NewHandler creates the edge handler from its explicitly constructed parts.
// Swallowed store and compression errors are fed into the collector so the
// stats snapshot reflects degradations alongside the Prometheus counters.
func NewHandler(cacheOrch *cache.Orchestrator, compressOrch *compress.Orchestrator, collector *stats.Collector) *Handler {
	cacheOrch.OnStoreError(collector.RecordStoreError)
	compressOrch.OnError(collector.RecordCompressionError)
	return &Handler{
		cache:    cacheOrch,
		compress: compressOrch,
		stats:    collector,
		logger:   log.With().Str("component", "edge").Logger(),
	}
}

// Wrap returns an http.Handler that serves from cache when possible and
// caches/compresses origin responses otherwise.
func (h *Handler) Wrap(origin http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.stats.RecordRequest()

		if entry := h.cache.Handle(r); entry != nil {
			h.stats.RecordHit()
			h.serveEntry(w, r, entry)
			return
		}

		key := h.cache.Key(r)
		if key == "" {
			// Bypass: the request can never be cached, hand it straight to
			// the origin and only apply compression.
			rec := newRecorder()
			origin.ServeHTTP(rec, r)
			h.writeResponse(w, r, rec.capture().response(r))
			return
		}

		h.stats.RecordMiss()

		result, _, _ := h.flight.Do(key, func() (interface{}, error) {
			rec := newRecorder()
			origin.ServeHTTP(rec, r)
			recorded := rec.capture()

			resp := h.cache.CacheResponse(r, recorded.response(r))
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return recorded, nil
			}
			resp.Body.Close()
			return &captured{status: resp.StatusCode, header: resp.Header.Clone(), body: body}, nil
		})

		h.writeResponse(w, r, result.(*captured).response(r))
	})
}

// serveEntry replays a cached entry, skipping the origin handler.
func (h *Handler) serveEntry(w http.ResponseWriter, r *http.Request, entry *cache.Entry) {
	header := make(http.Header, len(entry.Headers))
	for name, value := range entry.Headers {
		header.Set(name, value)
	}
	resp := (&captured{status: entry.StatusCode, header: header, body: entry.Body}).response(r)
	h.writeResponse(w, r, resp)
}

// writeResponse applies compression and writes the response to the client.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, resp *http.Response) {
	originalSize := int(resp.ContentLength)

	resp = h.compress.Handle(r, resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to read response body")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp.Body.Close()

	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" && originalSize > 0 {
		h.stats.RecordCompression(enc, originalSize, len(body))
	}

	for name, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		h.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Client went away during write")
	}
}
