package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Response headers produced by the caching layer.
const (
	HeaderCacheStatus = "X-Cache-Status"
	HeaderCacheKey    = "X-Cache-Key"
	HeaderCacheTTL    = "X-Cache-TTL"

	statusHit  = "HIT"
	statusMiss = "MISS"
)

// Orchestrator is the request-facing entry point of the caching layer:
// lookup, pass-through decision, store, and header injection.
//
// Caching is best-effort. Store failures are logged and counted, never
// propagated: the worst case is an uncached request, not a failed one.
type Orchestrator struct {
	keys         *KeyGenerator
	policy       *Policy
	store        Store
	cfg          Config
	logger       zerolog.Logger
	onStoreError func()
}

// New creates an orchestrator from a validated configuration and a store.
func New(cfg Config, store Store) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	policy, err := NewPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}
	return &Orchestrator{
		keys:   NewKeyGenerator(cfg.VaryHeaders, cfg.RegionHeader),
		policy: policy,
		store:  store,
		cfg:    cfg,
		logger: log.With().Str("component", "cache").Logger(),
	}, nil
}

// OnStoreError registers a callback invoked once per swallowed store error,
// in addition to the Prometheus counters. Must be set before serving.
func (o *Orchestrator) OnStoreError(fn func()) {
	o.onStoreError = fn
}

func (o *Orchestrator) noteStoreError() {
	if o.onStoreError != nil {
		o.onStoreError()
	}
}

// Key returns the cache key for a request, or "" when the request bypasses
// the cache (non-GET/HEAD, excluded path, bypass parameter, include-list
// mismatch). The empty key doubles as the fast-rejection signal.
func (o *Orchestrator) Key(r *http.Request) string {
	if o.policy.ShouldBypass(r.Method, r.URL.Path, r.URL.RawQuery) {
		return ""
	}
	return o.keys.Generate(r)
}

// Handle performs the cache lookup for a request. It returns nil for
// requests that bypass the cache and on miss; the caller must then invoke
// the origin handler. On hit the entry carries X-Cache-Status: HIT.
func (o *Orchestrator) Handle(r *http.Request) *Entry {
	key := o.Key(r)
	if key == "" {
		return nil
	}

	entry, err := o.store.Get(r.Context(), key)
	if err != nil {
		if err != ErrCacheMiss {
			// Degrade to a miss; the origin still serves the request.
			o.noteStoreError()
			o.logger.Warn().Err(err).
				Str("key", key).
				Str("path", r.URL.Path).
				Msg("Cache lookup failed")
		}
		cacheMisses.Inc()
		return nil
	}

	cacheHits.Inc()
	o.logger.Debug().
		Str("key", key).
		Str("path", r.URL.Path).
		Msg("Cache hit")

	// Entries written elsewhere in the shared store can carry null headers.
	if entry.Headers == nil {
		entry.Headers = make(map[string]string, 2)
	}
	entry.Headers[HeaderCacheStatus] = statusHit
	entry.Headers[HeaderCacheKey] = key
	return entry
}

// CacheResponse evaluates the policy for an origin response and, when
// cacheable, persists it and decorates it with cache headers. The response
// body is read exactly once and restored, so the caller can still return the
// original response to the client.
func (o *Orchestrator) CacheResponse(r *http.Request, resp *http.Response) *http.Response {
	decision := o.policy.Decide(r.Method, r.URL.Path, resp.Header, resp.StatusCode)
	if !decision.Cacheable {
		if decision.Strategy == NetworkOnly {
			resp.Header.Set("Cache-Control", NetworkOnly.CacheControl(0, 0))
		}
		return resp
	}

	key := o.Key(r)
	if key == "" {
		return resp
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		o.logger.Warn().Err(err).
			Str("key", key).
			Str("path", r.URL.Path).
			Msg("Failed to read response body for caching")
		return resp
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	resp.Header.Set("Cache-Control", decision.Strategy.CacheControl(decision.TTL, o.cfg.StaleWhileRevalidate))
	resp.Header.Set("ETag", ETag(body, resp.StatusCode))
	resp.Header.Set(HeaderCacheStatus, statusMiss)
	resp.Header.Set(HeaderCacheKey, key)
	resp.Header.Set(HeaderCacheTTL, strconv.FormatInt(int64(decision.TTL.Seconds()), 10))

	entry := NewEntry(body, resp.Header, resp.StatusCode, decision.TTL, decision.Tags)

	// The write must survive client disconnects: caching is not tied to the
	// connection lifetime.
	ctx := context.WithoutCancel(r.Context())
	if err := o.store.Set(ctx, key, entry, decision.TTL, decision.Tags); err != nil {
		o.noteStoreError()
		o.logger.Warn().Err(err).
			Str("key", key).
			Str("path", r.URL.Path).
			Msg("Cache write failed")
	} else {
		o.logger.Debug().
			Str("key", key).
			Str("path", r.URL.Path).
			Dur("ttl", decision.TTL).
			Strs("tags", decision.Tags).
			Msg("Cached response")
	}

	return resp
}

// InvalidateByTags deletes every stored key associated with any of the tags.
// Errors are returned to the caller for retry; the operation is idempotent.
func (o *Orchestrator) InvalidateByTags(ctx context.Context, tags []string) (int, error) {
	deleted, err := o.store.DeleteByTags(ctx, tags)
	if err != nil {
		return deleted, fmt.Errorf("invalidate by tags: %w", err)
	}
	o.logger.Info().Strs("tags", tags).Int("deleted", deleted).Msg("Invalidated cache entries")
	return deleted, nil
}

// Clear removes every cached entry.
func (o *Orchestrator) Clear(ctx context.Context) error {
	if err := o.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	o.logger.Info().Msg("Cleared cache")
	return nil
}

// ETag computes a weak validator from the response body and status. The
// hash is well-distributed but not collision-resistant; it is meant for
// cache busting, not integrity.
func ETag(body []byte, statusCode int) string {
	d := xxhash.New()
	_, _ = d.Write(body)
	_, _ = d.WriteString(strconv.Itoa(statusCode))
	return `"` + strconv.FormatUint(d.Sum64(), 36) + `"`
}
