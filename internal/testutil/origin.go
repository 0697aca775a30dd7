package testutil

import (
	"net/http"
	"sync"
	"sync/atomic"
)

// Origin is a configurable fake origin handler that tracks how often it was
// invoked, for asserting cache hit/miss and single-flight behavior.
type Origin struct {
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Invocations counts requests that reached the origin.
	Invocations atomic.Int64
}

// NewOrigin creates a fake origin. Paths without a registered handler get a
// 200 text/plain response echoing the path.
func NewOrigin() *Origin {
	return &Origin{handlers: make(map[string]http.HandlerFunc)}
}

// Handle registers a handler for a path.
func (o *Origin) Handle(path string, handler http.HandlerFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[path] = handler
}

// ServeHTTP implements http.Handler.
func (o *Origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.Invocations.Add(1)

	o.mu.RLock()
	handler, ok := o.handlers[r.URL.Path]
	o.mu.RUnlock()

	if ok {
		handler(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("origin response for " + r.URL.Path))
}
