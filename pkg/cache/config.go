package cache

import (
	"fmt"
	"time"

	"github.com/kottu/edge-cache/internal/pattern"
)

// Config holds the caching layer configuration. Every option is validated at
// construction time; a misconfigured layer fails fast instead of per-request.
type Config struct {
	// TTL tiers, checked in order: static asset extension, API prefix,
	// HTML content type, default.
	DefaultTTL      time.Duration
	StaticAssetsTTL time.Duration
	APIResponseTTL  time.Duration
	HTMLTTL         time.Duration

	// StaleWhileRevalidate is the window rendered into the
	// stale-while-revalidate Cache-Control directive.
	StaleWhileRevalidate time.Duration

	// VaryHeaders are the request headers that participate in the cache key.
	VaryHeaders []string

	// RegionHeader names the trusted edge-provided geography header.
	RegionHeader string

	// APIPrefixes are path prefixes that select the API TTL tier.
	APIPrefixes []string

	// CacheableStatusCodes is the set of response codes eligible for caching.
	CacheableStatusCodes []int

	// ExcludePaths are wildcard patterns that are never cached.
	ExcludePaths []string

	// IncludePaths, when non-empty, restricts caching to matching paths.
	IncludePaths []string

	// BypassParams are query parameter names that force a cache bypass.
	BypassParams []string

	// RouteStrategies overrides the automatic strategy per path pattern.
	// This is the only way to reach NetworkFirst / NetworkOnly.
	RouteStrategies map[string]Strategy
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:           5 * time.Minute,
		StaticAssetsTTL:      24 * time.Hour,
		APIResponseTTL:       2 * time.Minute,
		HTMLTTL:              10 * time.Minute,
		StaleWhileRevalidate: 1 * time.Minute,
		VaryHeaders:          []string{"Accept", "Accept-Language"},
		RegionHeader:         "CF-IPCountry",
		APIPrefixes:          []string{"/api/"},
		CacheableStatusCodes: []int{200, 201, 204, 206, 300, 301, 404, 410},
		BypassParams:         []string{"nocache"},
	}
}

// Validate checks the configuration and returns an error describing the
// first invalid option found.
func (c Config) Validate() error {
	for name, ttl := range map[string]time.Duration{
		"default_ttl":       c.DefaultTTL,
		"static_assets_ttl": c.StaticAssetsTTL,
		"api_response_ttl":  c.APIResponseTTL,
		"html_ttl":          c.HTMLTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be > 0 (got %s)", name, ttl)
		}
	}
	if c.StaleWhileRevalidate < 0 {
		return fmt.Errorf("stale_while_revalidate must be >= 0 (got %s)", c.StaleWhileRevalidate)
	}
	if len(c.CacheableStatusCodes) == 0 {
		return fmt.Errorf("cacheable_status_codes must not be empty")
	}
	for _, code := range c.CacheableStatusCodes {
		if code < 100 || code > 599 {
			return fmt.Errorf("invalid cacheable status code %d", code)
		}
	}
	for _, p := range append(append([]string{}, c.ExcludePaths...), c.IncludePaths...) {
		if err := pattern.Validate(p); err != nil {
			return err
		}
	}
	for p, s := range c.RouteStrategies {
		if err := pattern.Validate(p); err != nil {
			return err
		}
		switch s {
		case CacheFirst, StaleWhileRevalidate, NetworkFirst, NetworkOnly:
		default:
			return fmt.Errorf("unknown strategy %q for route %q", s, p)
		}
	}
	return nil
}
