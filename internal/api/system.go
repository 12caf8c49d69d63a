package api

import (
	"net/http"
	"strconv"

	"github.com/starford/smartstudy/internal/studyservice"
)

// Search handles GET /api/search.
//
//	@Summary		Search notes and tasks
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max note hits"
//	@Success		200		{object}	studyservice.SearchResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, h.svc.Search(q, limit))
}

// Storage handles GET /api/storage.
func (h *Handler) Storage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Storage(r.Context()))
}

// GetPreferences handles GET /api/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Preferences(r.Context())
	if err != nil {
		writeError(w, "get preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePreferences handles PATCH /api/preferences.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch studyservice.PreferencesPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.svc.SetPreferences(r.Context(), patch)
	if err != nil {
		writeError(w, "update preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
