package handler

import (
	"context"
	"net/http"
)

// Pinger reports liveness of an optional dependency.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// HealthHandler handles the liveness endpoint.
type HealthHandler struct {
	cache Pinger // nil when Redis is not configured
}

func NewHealthHandler(cache Pinger) *HealthHandler { return &HealthHandler{cache: cache} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if h.cache != nil {
		resp["cache"] = h.cache.Healthy(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}
