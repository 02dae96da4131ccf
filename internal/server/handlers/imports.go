package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agentstation/catalogsync/internal/server/response"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/sources"
	"github.com/agentstation/catalogsync/pkg/sources/flatfile"
	"github.com/agentstation/catalogsync/pkg/sources/remote"
)

// RemoteImportRequest is the body of the remote import endpoints. Refs
// switches a full import into a refresh of the listed remote ids.
type RemoteImportRequest struct {
	remote.Config
	Refs []string `json:"refs,omitempty"`
}

// Preview is the answer of the preview endpoint.
type Preview struct {
	Found      int                 `json:"found"`
	Candidates []catalog.Candidate `json:"candidates"`
	Skipped    []sources.Skip      `json:"skipped"`
}

// HandleFlatFileImport handles POST /api/v1/vendors/{vendorID}/imports/flatfile.
// The feed is either the raw body or the "file" part of a multipart form.
// The charset query parameter overrides UTF-8.
func (h *Handlers) HandleFlatFileImport(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "vendorID")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	data, name, err := readUpload(r, h.maxUpload)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(w, h.maxUpload)
			return
		}
		response.BadRequest(w, "Could not read upload", err.Error())
		return
	}
	if len(data) == 0 {
		response.BadRequest(w, "Empty upload", "Send the feed as the request body or as a multipart file field")
		return
	}

	opts := []flatfile.Option{flatfile.WithName(name)}
	if charset := r.URL.Query().Get("charset"); charset != "" {
		opts = append(opts, flatfile.WithCharset(charset))
	}

	run, err := h.engine.RunFlatFileImport(r.Context(), vendorID, data, opts...)
	h.respondRun(w, run, err)
}

// HandleRemoteImport handles POST /api/v1/vendors/{vendorID}/imports/remote.
func (h *Handlers) HandleRemoteImport(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "vendorID")

	var req RemoteImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		run *runs.ImportRun
		err error
	)
	if len(req.Refs) > 0 {
		run, err = h.engine.RunRemoteRefresh(r.Context(), vendorID, req.Config, req.Refs)
	} else {
		run, err = h.engine.RunRemoteImport(r.Context(), vendorID, req.Config)
	}
	h.respondRun(w, run, err)
}

// HandlePreviewRemote handles POST /api/v1/vendors/{vendorID}/imports/remote/preview.
func (h *Handlers) HandlePreviewRemote(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "vendorID")

	var cfg remote.Config
	if !decodeJSON(w, r, &cfg) {
		return
	}

	batch, err := h.engine.PreviewRemote(r.Context(), vendorID, cfg)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	preview := Preview{
		Found:      batch.Found(),
		Candidates: batch.Candidates,
		Skipped:    batch.Skipped,
	}
	if preview.Candidates == nil {
		preview.Candidates = []catalog.Candidate{}
	}
	if preview.Skipped == nil {
		preview.Skipped = []sources.Skip{}
	}
	response.OK(w, preview)
}

// respondRun answers 201 with a completed run. A failed run is returned
// next to its error.
func (h *Handlers) respondRun(w http.ResponseWriter, run *runs.ImportRun, err error) {
	switch {
	case err == nil:
		response.Created(w, run)
	case run != nil:
		response.FailedWith(w, run, err)
	default:
		response.ErrorFromType(w, err)
	}
}

func readUpload(r *http.Request, limit int64) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(r.Body)
		return data, r.URL.Query().Get("name"), err
	}

	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	return data, header.Filename, err
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		response.BadRequest(w, "Invalid JSON body", err.Error())
		return false
	}
	return true
}
