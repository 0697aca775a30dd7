package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout. Entries live under resp:<key>; the invalidation index is
// a set per tag (tag:<tag> -> member keys) plus a set of all known tag names.
const (
	respKeyPrefix = "resp:"
	tagKeyPrefix  = "tag:"
	tagIndexKey   = "edge:tags"
)

// RedisStore implements Store on a Redis backend with tag-indexed
// invalidation.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

func respKey(key string) string {
	return respKeyPrefix + key
}

func tagKey(tag string) string {
	return tagKeyPrefix + tag
}

// Get retrieves an entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, respKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		storeErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		storeErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis TTL normally expires entries first; this guards against clock
	// skew between writers.
	if entry.IsExpired() {
		_ = s.redis.Del(ctx, respKey(key)).Err()
		return nil, ErrCacheMiss
	}

	return &entry, nil
}

// Set stores an entry with the given TTL and registers it under its tags.
// The tag sets expire alongside the longest-lived entry they reference.
func (s *RedisStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration, tags []string) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be > 0 (got %s)", ttl)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		storeErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, respKey(key), data, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagKey(tag), key)
		// Keep the tag set alive at least as long as this entry. A shorter
		// pre-existing expiry would drop live keys from the index.
		pipe.ExpireGT(ctx, tagKey(tag), ttl)
		pipe.SAdd(ctx, tagIndexKey, tag)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		storeErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	storedBytes.Add(float64(len(data)))
	return nil
}

// DeleteByTags removes every key associated with any of the given tags and
// removes those keys from the index.
func (s *RedisStore) DeleteByTags(ctx context.Context, tags []string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}

	keys := make(map[string]bool)
	for _, tag := range tags {
		members, err := s.redis.SMembers(ctx, tagKey(tag)).Result()
		if err != nil && err != redis.Nil {
			storeErrors.WithLabelValues("delete").Inc()
			return 0, fmt.Errorf("redis smembers %s: %w", tag, err)
		}
		for _, member := range members {
			keys[member] = true
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	for key := range keys {
		pipe.Del(ctx, respKey(key))
	}
	for _, tag := range tags {
		pipe.Del(ctx, tagKey(tag))
		pipe.SRem(ctx, tagIndexKey, tag)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		storeErrors.WithLabelValues("delete").Inc()
		return 0, fmt.Errorf("redis delete by tags: %w", err)
	}

	invalidations.Add(float64(len(keys)))
	return len(keys), nil
}

// Clear removes everything the layer ever stored: all tagged entries, the
// tag sets, and the tag name index.
func (s *RedisStore) Clear(ctx context.Context) error {
	tags, err := s.redis.SMembers(ctx, tagIndexKey).Result()
	if err != nil && err != redis.Nil {
		storeErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis smembers tags: %w", err)
	}

	if len(tags) > 0 {
		if _, err := s.DeleteByTags(ctx, tags); err != nil {
			return err
		}
	}

	if err := s.redis.Del(ctx, tagIndexKey).Err(); err != nil {
		storeErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}
