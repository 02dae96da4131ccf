package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentstation/catalogsync/internal/server/response"
	"github.com/agentstation/catalogsync/pkg/runs"
)

// HandleListRuns handles GET /api/v1/imports and
// GET /api/v1/vendors/{vendorID}/imports.
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "vendorID")

	list, err := h.engine.GetImportRuns(r.Context(), vendorID)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if list == nil {
		list = []runs.ImportRun{}
	}
	response.OK(w, map[string]any{
		"runs":  list,
		"count": len(list),
	})
}

// HandleGetRun handles GET /api/v1/imports/{runID}.
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.engine.GetImportRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, run)
}
