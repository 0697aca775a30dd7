package cache

import (
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/kottu/edge-cache/internal/pattern"
)

// staticExtensions are file extensions treated as immutable static assets.
var staticExtensions = map[string]bool{
	".css": true, ".js": true, ".mjs": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".avif": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true,
	".pdf": true, ".txt": true, ".xml": true,
}

// Decision is the outcome of a policy evaluation for one response.
type Decision struct {
	// Cacheable is false when the response must not be stored.
	Cacheable bool

	// TTL is the selected time-to-live (> 0 when Cacheable).
	TTL time.Duration

	// Strategy drives Cache-Control rendering. May be set even when
	// Cacheable is false (NetworkOnly route overrides).
	Strategy Strategy

	// Tags are the invalidation labels for the entry.
	Tags []string
}

// Policy decides whether and how a response is cached.
type Policy struct {
	cfg             Config
	cacheableStatus map[int]bool
	overrides       []routeStrategy
}

// routeStrategy is one per-route strategy override. Overrides are matched in
// lexicographic pattern order so overlapping patterns resolve the same way
// in every process.
type routeStrategy struct {
	pattern  string
	strategy Strategy
}

// NewPolicy creates a policy from a validated configuration.
func NewPolicy(cfg Config) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	statuses := make(map[int]bool, len(cfg.CacheableStatusCodes))
	for _, code := range cfg.CacheableStatusCodes {
		statuses[code] = true
	}
	overrides := make([]routeStrategy, 0, len(cfg.RouteStrategies))
	for pat, strategy := range cfg.RouteStrategies {
		overrides = append(overrides, routeStrategy{pattern: pat, strategy: strategy})
	}
	sort.Slice(overrides, func(i, j int) bool {
		return overrides[i].pattern < overrides[j].pattern
	})
	return &Policy{cfg: cfg, cacheableStatus: statuses, overrides: overrides}, nil
}

// ShouldBypass reports whether the request must skip the cache entirely:
// non-GET/HEAD methods, excluded paths, bypass query parameters, or an
// include-list mismatch. Evaluated before any store lookup.
func (p *Policy) ShouldBypass(method, requestPath, rawQuery string) bool {
	if method != http.MethodGet && method != http.MethodHead {
		return true
	}
	if pattern.MatchAny(requestPath, p.cfg.ExcludePaths) {
		return true
	}
	if len(p.cfg.IncludePaths) > 0 && !pattern.MatchAny(requestPath, p.cfg.IncludePaths) {
		return true
	}
	if len(p.cfg.BypassParams) > 0 && rawQuery != "" {
		query, err := url.ParseQuery(rawQuery)
		if err == nil {
			for _, param := range p.cfg.BypassParams {
				if query.Has(param) {
					return true
				}
			}
		}
	}
	return false
}

// Decide evaluates a completed origin response.
// Exclusion rules win over everything, including route overrides.
func (p *Policy) Decide(method, requestPath string, header http.Header, statusCode int) Decision {
	if p.ShouldBypass(method, requestPath, "") {
		return Decision{}
	}
	if override, ok := p.routeOverride(requestPath); ok && override == NetworkOnly {
		return Decision{Strategy: NetworkOnly}
	}
	if !p.cacheableStatus[statusCode] {
		return Decision{}
	}
	if hasUncacheableDirective(header.Get("Cache-Control")) {
		return Decision{}
	}

	contentType := header.Get("Content-Type")
	ttl, static := p.selectTTL(requestPath, contentType)
	if ttl <= 0 {
		return Decision{}
	}

	strategy := StaleWhileRevalidate
	if static {
		strategy = CacheFirst
	}
	if override, ok := p.routeOverride(requestPath); ok {
		strategy = override
	}

	return Decision{
		Cacheable: true,
		TTL:       ttl,
		Strategy:  strategy,
		Tags:      deriveTags(contentType),
	}
}

// selectTTL picks the TTL tier: static asset extension, API path prefix,
// HTML content type, configured default. Returns whether the static tier won.
func (p *Policy) selectTTL(requestPath, contentType string) (time.Duration, bool) {
	if staticExtensions[strings.ToLower(path.Ext(requestPath))] {
		return p.cfg.StaticAssetsTTL, true
	}
	for _, prefix := range p.cfg.APIPrefixes {
		if strings.HasPrefix(requestPath, prefix) {
			return p.cfg.APIResponseTTL, false
		}
	}
	if strings.HasPrefix(contentType, "text/html") {
		return p.cfg.HTMLTTL, false
	}
	return p.cfg.DefaultTTL, false
}

func (p *Policy) routeOverride(requestPath string) (Strategy, bool) {
	for _, o := range p.overrides {
		if pattern.Match(requestPath, o.pattern) {
			return o.strategy, true
		}
	}
	return "", false
}

// hasUncacheableDirective checks the response Cache-Control for directives
// that forbid shared caching.
func hasUncacheableDirective(cacheControl string) bool {
	if cacheControl == "" {
		return false
	}
	cc := strings.ToLower(cacheControl)
	for _, directive := range []string{"no-store", "no-cache", "private"} {
		if strings.Contains(cc, directive) {
			return true
		}
	}
	return false
}

// deriveTags maps a response content type to invalidation tags.
func deriveTags(contentType string) []string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/json"):
		return []string{"api", "json"}
	case strings.Contains(ct, "text/html"):
		return []string{"html", "page"}
	case strings.HasPrefix(ct, "image/"):
		return []string{"image", "asset"}
	case strings.Contains(ct, "text/css"),
		strings.Contains(ct, "javascript"),
		strings.Contains(ct, "ecmascript"):
		return []string{"asset", "static"}
	default:
		return []string{"page"}
	}
}
