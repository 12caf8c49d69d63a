package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartstudy/internal/transfer"
)

// ExportAll handles GET /api/export and downloads every subject and note.
func (h *Handler) ExportAll(w http.ResponseWriter, r *http.Request) {
	h.writeBundle(w, h.svc.Export(transfer.SelectAll(h.svc.Snapshot())))
}

// Export handles POST /api/export with a selection body.
//
//	@Summary		Export selected subjects and notes
//	@Tags			transfer
//	@Accept			json
//	@Produce		json
//	@Param			body	body		transfer.Selection	true	"Selection"
//	@Success		200		{object}	transfer.Bundle
//	@Security		BearerAuth
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var sel transfer.Selection
	if !decodeJSON(w, r, &sel) {
		return
	}
	h.writeBundle(w, h.svc.Export(sel))
}

func (h *Handler) writeBundle(w http.ResponseWriter, b transfer.Bundle) {
	var buf bytes.Buffer
	if err := transfer.Encode(&buf, b); err != nil {
		writeError(w, "export", err)
		return
	}
	name := fmt.Sprintf("smartstudy-export-%s.json", b.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// PreviewImport handles POST /api/imports. The body is an export bundle; it
// is validated and staged, and the response carries its preview and the
// token to commit it with.
//
//	@Summary		Stage an import bundle
//	@Tags			transfer
//	@Accept			json
//	@Produce		json
//	@Param			body	body		transfer.Bundle	true	"Export bundle"
//	@Success		201		{object}	studyservice.PendingImport
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/imports [post]
func (h *Handler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	b, err := transfer.Decode(r.Body)
	if err != nil {
		writeError(w, "preview import", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.StageImport(b, "upload"))
}

// ListImports handles GET /api/imports.
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"imports": h.svc.PendingImports(),
	})
}

// CommitImport handles POST /api/imports/{token}/commit.
func (h *Handler) CommitImport(w http.ResponseWriter, r *http.Request) {
	var req CommitImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	strategy, err := transfer.ParseStrategy(req.Strategy)
	if err != nil {
		writeError(w, "commit import", err)
		return
	}
	rep, err := h.svc.CommitImport(r.Context(), chi.URLParam(r, "token"), strategy)
	if err != nil {
		writeError(w, "commit import", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// DiscardImport handles DELETE /api/imports/{token}.
func (h *Handler) DiscardImport(w http.ResponseWriter, r *http.Request) {
	if !h.svc.DiscardImport(chi.URLParam(r, "token")) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
