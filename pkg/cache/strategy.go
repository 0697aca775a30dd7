package cache

import (
	"fmt"
	"time"
)

// Strategy determines how a cached response may be served and which
// Cache-Control directives are rendered at write time. The strategy is a
// write-time decision attached to the response, not stored state.
type Strategy string

const (
	// CacheFirst serves from cache until the TTL expires. Used for static
	// assets that never change under the same URL.
	CacheFirst Strategy = "cache-first"

	// StaleWhileRevalidate serves from cache and allows a stale entry to be
	// served while a background refresh is in flight.
	StaleWhileRevalidate Strategy = "stale-while-revalidate"

	// NetworkFirst prefers the origin and caps client caching at one minute.
	// Only reachable via per-route overrides, never auto-selected.
	NetworkFirst Strategy = "network-first"

	// NetworkOnly disables caching entirely for the route.
	// Only reachable via per-route overrides, never auto-selected.
	NetworkOnly Strategy = "network-only"
)

// CacheControl renders the Cache-Control header value for the strategy.
// ttl is the entry TTL; swr is the stale-while-revalidate window.
func (s Strategy) CacheControl(ttl, swr time.Duration) string {
	maxAge := int64(ttl.Seconds())
	switch s {
	case CacheFirst:
		return fmt.Sprintf("public, max-age=%d, immutable", maxAge)
	case StaleWhileRevalidate:
		return fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, int64(swr.Seconds()))
	case NetworkFirst:
		if maxAge > 60 {
			maxAge = 60
		}
		return fmt.Sprintf("public, max-age=%d, must-revalidate", maxAge)
	case NetworkOnly:
		return "no-cache, no-store, must-revalidate"
	default:
		return fmt.Sprintf("public, max-age=%d", maxAge)
	}
}
