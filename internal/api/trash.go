package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartstudy/internal/state"
)

// ListTrash handles GET /api/trash.
//
//	@Summary		List trash records, newest first
//	@Tags			trash
//	@Produce		json
//	@Success		200	{array}	models.TrashItem
//	@Security		BearerAuth
//	@Router			/trash [get]
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": h.svc.Trash(),
	})
}

// RestoreTrash handles POST /api/trash/{id}/restore. An unknown id is a
// no-op answered with restored=false, so a repeated restore is harmless.
func (h *Handler) RestoreTrash(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Dispatch(r.Context(), state.Restore{TrashID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": res.Restored})
}

// PurgeTrash handles DELETE /api/trash/{id}?confirm=true. Purging is
// permanent, so the caller must confirm explicitly.
func (h *Handler) PurgeTrash(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	res, err := h.svc.Dispatch(r.Context(), state.Purge{TrashID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, "purge", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purged": res.Purged})
}

// EmptyTrash handles DELETE /api/trash?confirm=true.
func (h *Handler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	res, err := h.svc.Dispatch(r.Context(), state.EmptyTrash{})
	if err != nil {
		writeError(w, "empty trash", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purged": res.Purged})
}

func confirmed(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusPreconditionRequired, errorBody("confirm=true is required"))
		return false
	}
	return true
}
