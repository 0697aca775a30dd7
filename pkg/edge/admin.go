package edge

import (
	"encoding/json"
	"net/http"
)

// Admin exposes the administrative cache operations for the application
// layer to call on data mutations ("menu updated" -> invalidate api+html).
type Admin struct {
	handler *Handler
}

// NewAdmin creates the admin surface for an edge handler.
func NewAdmin(h *Handler) *Admin {
	return &Admin{handler: h}
}

type invalidateRequest struct {
	Tags []string `json:"tags"`
}

type invalidateResponse struct {
	Deleted int `json:"deleted"`
}

// Invalidate handles POST requests with a JSON body {"tags": [...]} and
// deletes every cached key under any of the tags. Store failures surface as
// 502 so the caller can retry; the operation is idempotent.
func (a *Admin) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Tags) == 0 {
		http.Error(w, "expected JSON body with non-empty tags", http.StatusBadRequest)
		return
	}

	deleted, err := a.handler.cache.InvalidateByTags(r.Context(), req.Tags)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(invalidateResponse{Deleted: deleted})
}

// Clear handles POST requests and removes every cached entry.
func (a *Admin) Clear(w http.ResponseWriter, r *http.Request) {
	if err := a.handler.cache.Clear(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET requests and returns the stats snapshot as JSON.
func (a *Admin) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.handler.stats.Snapshot())
}
