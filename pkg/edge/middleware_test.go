package edge_test

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kottu/edge-cache/internal/testutil"
	"github.com/kottu/edge-cache/pkg/cache"
	"github.com/kottu/edge-cache/pkg/compress"
	"github.com/kottu/edge-cache/pkg/edge"
	"github.com/kottu/edge-cache/pkg/stats"
)

type fixture struct {
	handler   http.Handler
	edge      *edge.Handler
	admin     *edge.Admin
	store     *testutil.MemStore
	origin    *testutil.Origin
	collector *stats.Collector
}

func newFixture(t *testing.T, mutate func(*cache.Config, *compress.Config)) *fixture {
	t.Helper()

	cacheCfg := cache.DefaultConfig()
	compressCfg := compress.DefaultConfig()
	if mutate != nil {
		mutate(&cacheCfg, &compressCfg)
	}

	store := testutil.NewMemStore()
	cacheOrch, err := cache.New(cacheCfg, store)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	compressOrch, err := compress.New(compressCfg)
	if err != nil {
		t.Fatalf("compress.New failed: %v", err)
	}

	collector := stats.New()
	origin := testutil.NewOrigin()
	h := edge.NewHandler(cacheOrch, compressOrch, collector)

	return &fixture{
		handler:   h.Wrap(origin),
		edge:      h,
		admin:     edge.NewAdmin(h),
		store:     store,
		origin:    origin,
		collector: collector,
	}
}

func (f *fixture) get(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestEdge_MissThenHitSkipsOrigin(t *testing.T) {
	f := newFixture(t, nil)
	f.origin.Handle("/api/menu", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"menu":["kottu roti"]}`))
	})

	first := f.get("/api/menu", nil)
	if got := first.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("First request X-Cache-Status = %q, want MISS", got)
	}
	if first.Body.String() != `{"menu":["kottu roti"]}` {
		t.Errorf("First body = %q", first.Body.String())
	}

	second := f.get("/api/menu", nil)
	if got := second.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("Second request X-Cache-Status = %q, want HIT", got)
	}
	if second.Body.String() != first.Body.String() {
		t.Error("Hit must serve byte-identical body")
	}

	if n := f.origin.Invocations.Load(); n != 1 {
		t.Errorf("Origin invoked %d times, want 1 (hit must skip origin)", n)
	}

	s := f.collector.Snapshot()
	if s.TotalRequests != 2 || s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats = %+v, want 2 requests / 1 hit / 1 miss", s)
	}
}

func TestEdge_PostPassesThrough(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest("POST", "/api/menu", strings.NewReader(`{"name":"new"}`))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	if f.store.SetCount != 0 {
		t.Error("POST must never be written to the cache")
	}
	if n := f.origin.Invocations.Load(); n != 1 {
		t.Errorf("Origin invoked %d times, want 1", n)
	}
}

func TestEdge_CompressionOnHitAndMiss(t *testing.T) {
	f := newFixture(t, func(_ *cache.Config, cc *compress.Config) {
		cc.MinSize = 16
	})

	big := strings.Repeat("menu item ", 500)
	f.origin.Handle("/menu", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(big))
	})

	headers := map[string]string{"Accept-Encoding": "gzip"}

	for i, wantStatus := range []string{"MISS", "HIT"} {
		w := f.get("/menu", headers)
		if got := w.Header().Get("X-Cache-Status"); got != wantStatus {
			t.Fatalf("Request %d X-Cache-Status = %q, want %s", i, got, wantStatus)
		}
		if got := w.Header().Get("Content-Encoding"); got != "gzip" {
			t.Fatalf("Request %d Content-Encoding = %q, want gzip", i, got)
		}

		r, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
		if err != nil {
			t.Fatalf("Request %d body is not gzip: %v", i, err)
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("Request %d gzip read: %v", i, err)
		}
		if string(decoded) != big {
			t.Errorf("Request %d decoded body mismatch", i)
		}
	}

	// The stored entry must be the identity body so other clients can
	// negotiate their own encoding.
	plain := f.get("/menu", nil)
	if enc := plain.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Client without Accept-Encoding got Content-Encoding %q", enc)
	}
	if plain.Body.String() != big {
		t.Error("Identity client must receive the uncompressed body")
	}
}

func TestEdge_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	f := newFixture(t, nil)

	release := make(chan struct{})
	f.origin.Handle("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slow":true}`))
	})

	const concurrency = 8
	var wg sync.WaitGroup
	bodies := make([]string, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := f.get("/api/slow", nil)
			bodies[i] = w.Body.String()
		}(i)
	}

	// Let all goroutines pile onto the in-flight key before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := f.origin.Invocations.Load(); n != 1 {
		t.Errorf("Origin invoked %d times for %d concurrent misses, want 1", n, concurrency)
	}
	for i, body := range bodies {
		if body != `{"slow":true}` {
			t.Errorf("Waiter %d body = %q", i, body)
		}
	}
}

func TestEdge_StoreFailureDegradesGracefully(t *testing.T) {
	f := newFixture(t, nil)
	f.store.FailGets = true
	f.store.FailSets = true

	w := f.get("/api/menu", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, store failures must never fail the request", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("Expected origin body despite store failure")
	}
}

func TestEdge_StoreFailuresCountedInStats(t *testing.T) {
	f := newFixture(t, nil)
	f.store.FailGets = true
	f.store.FailSets = true

	// Every request fails the lookup and then the write: two swallowed
	// store errors per request.
	const requests = 3
	for i := 0; i < requests; i++ {
		f.get("/api/menu", nil)
	}

	s := f.collector.Snapshot()
	if s.StoreErrors != 2*requests {
		t.Errorf("StoreErrors = %d, want %d", s.StoreErrors, 2*requests)
	}
}

func TestAdmin_InvalidateByTags(t *testing.T) {
	f := newFixture(t, nil)
	paths := []string{"/api/menu", "/api/hours", "/api/reviews"}
	for _, p := range paths {
		f.origin.Handle(p, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		})
	}

	for _, p := range paths {
		f.get(p, nil)
	}

	req := httptest.NewRequest("POST", "/admin/cache/invalidate", strings.NewReader(`{"tags":["api"]}`))
	w := httptest.NewRecorder()
	f.admin.Invalidate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Invalidate status = %d, body %s", w.Code, w.Body.String())
	}
	var result struct {
		Deleted int `json:"deleted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Invalid invalidate response: %v", err)
	}
	if result.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3", result.Deleted)
	}

	after := f.get("/api/menu", nil)
	if got := after.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("X-Cache-Status after invalidation = %q, want MISS", got)
	}
}

func TestAdmin_InvalidateRejectsEmptyTags(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest("POST", "/admin/cache/invalidate", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	f.admin.Invalidate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestAdmin_Clear(t *testing.T) {
	f := newFixture(t, nil)
	f.get("/api/menu", nil)

	req := httptest.NewRequest("POST", "/admin/cache/clear", nil)
	w := httptest.NewRecorder()
	f.admin.Clear(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Clear status = %d", w.Code)
	}
	if f.store.Len() != 0 {
		t.Errorf("Store holds %d entries after clear", f.store.Len())
	}
}

func TestAdmin_Stats(t *testing.T) {
	f := newFixture(t, nil)
	f.get("/api/menu", nil)
	f.get("/api/menu", nil)

	req := httptest.NewRequest("GET", "/admin/cache/stats", nil)
	w := httptest.NewRecorder()
	f.admin.Stats(w, req)

	var snapshot stats.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("Invalid stats response: %v", err)
	}
	if snapshot.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", snapshot.TotalRequests)
	}
	if snapshot.Hits != 1 {
		t.Errorf("Hits = %d, want 1", snapshot.Hits)
	}
}
