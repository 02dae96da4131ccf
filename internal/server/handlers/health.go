package handlers

import (
	"net/http"
	"sort"

	"github.com/agentstation/catalogsync/internal/server/response"
)

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "catalogsync",
	})
}

// HandleReady handles GET /ready. Every registered check must pass.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.ready))
	for name := range h.ready {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.ready[name](r.Context()); err != nil {
			h.logger.Warn().Err(err).Str("check", name).Msg("Readiness check failed")
			checks[name] = "unavailable"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		response.JSON(w, http.StatusServiceUnavailable, response.Response{
			Data:  map[string]any{"status": "not_ready", "checks": checks},
			Error: &response.Error{Code: "SERVICE_UNAVAILABLE", Message: "Service unavailable"},
		})
		return
	}
	response.OK(w, map[string]any{"status": "ready", "checks": checks})
}
