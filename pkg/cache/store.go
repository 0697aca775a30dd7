package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the external key/value backend. Any store with TTL support and
// reverse tag lookup qualifies; the Redis implementation is the default.
//
// DeleteByTags and Clear are best-effort: partial failures are returned to
// the caller for retry rather than retried internally, keeping both
// operations idempotent and observable.
type Store interface {
	// Get retrieves an entry. Returns ErrCacheMiss when absent or expired.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores an entry under key with the given TTL and registers it in
	// the tag index. A second Set under the same key is a full replace.
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration, tags []string) error

	// DeleteByTags removes every key associated with any of the tags and
	// drops those keys from the index. Returns the number of keys deleted.
	DeleteByTags(ctx context.Context, tags []string) (int, error)

	// Clear removes all entries and the entire tag index.
	Clear(ctx context.Context) error
}
