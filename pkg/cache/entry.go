package cache

import (
	"net/http"
	"time"
)

// Entry represents a cached origin response.
//
// Entries are immutable once stored: the orchestrator never mutates an entry
// in place, it writes a new entry under the same key (full replace).
type Entry struct {
	// Body is the response body
	Body []byte `json:"body"`

	// Headers are the response headers captured at store time
	Headers map[string]string `json:"headers"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// StatusText is the HTTP status text of the cached response
	StatusText string `json:"status_text"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`

	// TTLMillis is the time-to-live in milliseconds (always > 0 when stored)
	TTLMillis int64 `json:"ttl_ms"`

	// Tags are the invalidation labels attached at write time
	Tags []string `json:"tags"`
}

// TTL returns the entry's time-to-live as a duration.
func (e *Entry) TTL() time.Duration {
	return time.Duration(e.TTLMillis) * time.Millisecond
}

// ExpiresAt returns the time the entry becomes stale.
func (e *Entry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL())
}

// IsExpired returns true if the entry is past its TTL.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt())
}

// NewEntry builds an Entry from a response body and metadata.
// Headers are flattened to single values (the first value wins) since the
// layer only ever replays complete responses it wrote itself.
func NewEntry(body []byte, header http.Header, statusCode int, ttl time.Duration, tags []string) *Entry {
	headers := make(map[string]string, len(header))
	for name := range header {
		headers[name] = header.Get(name)
	}
	return &Entry{
		Body:       body,
		Headers:    headers,
		StatusCode: statusCode,
		StatusText: http.StatusText(statusCode),
		StoredAt:   time.Now(),
		TTLMillis:  ttl.Milliseconds(),
		Tags:       tags,
	}
}
