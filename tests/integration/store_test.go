package integration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kottu/edge-cache/pkg/cache"
	"github.com/kottu/edge-cache/pkg/compress"
	"github.com/kottu/edge-cache/pkg/edge"
	"github.com/kottu/edge-cache/pkg/stats"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newEntry(t *testing.T, body string, tags []string, ttl time.Duration) *cache.Entry {
	t.Helper()

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return cache.NewEntry([]byte(body), header, http.StatusOK, ttl, tags)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := cache.NewRedisStore(redisClient)
	ctx := context.Background()

	entry := newEntry(t, `{"menu":"lunch"}`, []string{"api", "json"}, time.Minute)
	if err := store.Set(ctx, "edge:menu", entry, time.Minute, entry.Tags); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "edge:menu")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(got.Body) != `{"menu":"lunch"}` {
		t.Errorf("Body mismatch: %s", got.Body)
	}
	if got.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", got.StatusCode)
	}
	if got.Headers["Content-Type"] != "application/json" {
		t.Errorf("Header mismatch: %v", got.Headers)
	}
	if len(got.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %v", got.Tags)
	}
}

func TestRedisStore_MissOnUnknownKey(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := cache.NewRedisStore(redisClient)

	_, err := store.Get(context.Background(), "edge:absent")
	if !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := cache.NewRedisStore(redisClient)
	ctx := context.Background()

	entry := newEntry(t, "short lived", []string{"page"}, time.Second)
	if err := store.Set(ctx, "edge:ephemeral", entry, time.Second, entry.Tags); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := store.Get(ctx, "edge:ephemeral"); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := store.Get(ctx, "edge:ephemeral"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestRedisStore_DeleteByTags(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := cache.NewRedisStore(redisClient)
	ctx := context.Background()

	entries := map[string][]string{
		"edge:menu":    {"api", "json"},
		"edge:hours":   {"api", "json"},
		"edge:landing": {"html", "page"},
	}
	for key, tags := range entries {
		e := newEntry(t, "body for "+key, tags, time.Minute)
		if err := store.Set(ctx, key, e, time.Minute, tags); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	deleted, err := store.DeleteByTags(ctx, []string{"api"})
	if err != nil {
		t.Fatalf("DeleteByTags failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deletions, got %d", deleted)
	}

	if _, err := store.Get(ctx, "edge:menu"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Expected edge:menu gone, got %v", err)
	}
	if _, err := store.Get(ctx, "edge:landing"); err != nil {
		t.Errorf("Expected edge:landing untouched, got %v", err)
	}

	// Invalidating the same tag again is a no-op.
	deleted, err = store.DeleteByTags(ctx, []string{"api"})
	if err != nil {
		t.Fatalf("Second DeleteByTags failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 deletions on repeat, got %d", deleted)
	}
}

func TestRedisStore_Clear(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := cache.NewRedisStore(redisClient)
	ctx := context.Background()

	for _, key := range []string{"edge:a", "edge:b"} {
		e := newEntry(t, "body", []string{"page"}, time.Minute)
		if err := store.Set(ctx, key, e, time.Minute, e.Tags); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	for _, key := range []string{"edge:a", "edge:b"} {
		if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrCacheMiss) {
			t.Errorf("Expected %s cleared, got %v", key, err)
		}
	}
}

// TestEdgeHandler_EndToEnd drives the full middleware stack against a real
// Redis backend: miss, hit, compression, and tag invalidation in one flow.
func TestEdgeHandler_EndToEnd(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := cache.NewRedisStore(redisClient)
	cacheOrch, err := cache.New(cache.DefaultConfig(), store)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	compressOrch, err := compress.New(compress.DefaultConfig())
	if err != nil {
		t.Fatalf("compress.New failed: %v", err)
	}

	collector := stats.New()
	handler := edge.NewHandler(cacheOrch, compressOrch, collector)

	originCalls := 0
	origin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originCalls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		for i := 0; i < 200; i++ {
			io.WriteString(w, `{"item":"pasta","price":12.50}`)
		}
	})

	wrapped := handler.Wrap(origin)

	do := func(acceptEncoding string) *http.Response {
		req := httptest.NewRequest("GET", "http://edge.local/api/menu", nil)
		if acceptEncoding != "" {
			req.Header.Set("Accept-Encoding", acceptEncoding)
		}
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		return w.Result()
	}

	// First request misses and populates Redis.
	resp := do("gzip, br")
	if resp.Header.Get("X-Cache-Status") != "MISS" {
		t.Errorf("Expected MISS, got %s", resp.Header.Get("X-Cache-Status"))
	}
	if resp.Header.Get("Content-Encoding") != "br" {
		t.Errorf("Expected brotli encoding, got %q", resp.Header.Get("Content-Encoding"))
	}

	// Second request is served from Redis without touching the origin.
	resp = do("gzip")
	if resp.Header.Get("X-Cache-Status") != "HIT" {
		t.Errorf("Expected HIT, got %s", resp.Header.Get("X-Cache-Status"))
	}
	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Errorf("Expected gzip encoding on hit, got %q", resp.Header.Get("Content-Encoding"))
	}
	if originCalls != 1 {
		t.Errorf("Expected 1 origin call, got %d", originCalls)
	}

	// Invalidating the derived api tag forces the next request back to origin.
	if _, err := cacheOrch.InvalidateByTags(context.Background(), []string{"api"}); err != nil {
		t.Fatalf("InvalidateByTags failed: %v", err)
	}

	resp = do("")
	if resp.Header.Get("X-Cache-Status") != "MISS" {
		t.Errorf("Expected MISS after invalidation, got %s", resp.Header.Get("X-Cache-Status"))
	}
	if originCalls != 2 {
		t.Errorf("Expected 2 origin calls after invalidation, got %d", originCalls)
	}

	snapshot := collector.Snapshot()
	if snapshot.Hits != 1 || snapshot.Misses != 2 {
		t.Errorf("Unexpected stats: hits=%d misses=%d", snapshot.Hits, snapshot.Misses)
	}
}
