// Package cache implements the edge response-caching layer: deterministic
// cache keys, policy-driven TTL and strategy selection, a Redis-backed store
// with tag-indexed invalidation, and the request-facing orchestrator.
//
// The layer sits in front of an HTTP origin application and decides, for
// every inbound request, whether a cached response can be served, what key
// and TTL apply, and how cached artifacts are stored and invalidated. The
// origin's business logic is an external collaborator that simply produces
// responses to be cached.
//
// # Basic Usage
//
//	// Create Redis client and store
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	store := cache.NewRedisStore(redisClient)
//
//	// Create orchestrator
//	orch, err := cache.New(cache.DefaultConfig(), store)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Lookup before invoking the origin
//	if entry := orch.Handle(req); entry != nil {
//		// serve entry, skipping the origin entirely
//	}
//
//	// After the origin ran on a miss
//	resp = orch.CacheResponse(req, resp)
//
// # Invalidation
//
// Entries are tagged at write time based on their content type (api, json,
// html, page, image, asset, static). Application code invalidates after data
// mutations:
//
//	// "menu updated" -> drop cached API and HTML responses
//	orch.InvalidateByTags(ctx, []string{"api", "html"})
//
// # Failure Semantics
//
// Caching is best-effort. Store errors during lookup or write are swallowed,
// logged, and counted; a lookup failure behaves as a miss. No error from
// this package ever fails the request pipeline.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - edge_cache_hits_total - Cache hits
//   - edge_cache_misses_total - Cache misses
//   - edge_cache_store_errors_total{operation} - Swallowed store errors
//   - edge_cache_stored_bytes_total - Bytes written to the store
//   - edge_cache_invalidated_keys_total - Keys removed by tag invalidation
package cache
