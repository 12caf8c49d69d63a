package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartstudy/internal/editor"
)

const maxChunkBytes = 8 << 20

// session resolves the {id} path parameter, writing a 404 when unknown.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	sess, err := h.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "session", err)
		return nil, false
	}
	return sess, true
}

// ListSessions handles GET /api/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": h.svc.Sessions(),
	})
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open an editor session on a note
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	true	"Note to edit"
//	@Success		201		{object}	editor.View
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.svc.OpenSession(req.NoteID)
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

// GetSession handles GET /api/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// EditSession handles PATCH /api/sessions/{id}.
func (h *Handler) EditSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req EditSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title != nil {
		if err := sess.SetTitle(*req.Title); err != nil {
			writeError(w, "edit session", err)
			return
		}
	}
	if req.Content != nil {
		if err := sess.SetContent(*req.Content); err != nil {
			writeError(w, "edit session", err)
			return
		}
	}
	if req.Summary != nil {
		if err := sess.SetSummary(*req.Summary); err != nil {
			writeError(w, "edit session", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// SaveSession handles POST /api/sessions/{id}/save.
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Save(r.Context()); err != nil {
		writeError(w, "save session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// MinimizeSession handles POST /api/sessions/{id}/minimize. Pending edits
// and any recording in progress are saved first.
func (h *Handler) MinimizeSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Minimize(r.Context()); err != nil {
		writeError(w, "minimize session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// ResumeSession handles POST /api/sessions/{id}/resume.
func (h *Handler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Resume()
	writeJSON(w, http.StatusOK, sess.View())
}

// CloseSession handles DELETE /api/sessions/{id}?discard=true. Without
// discard, unsaved edits are saved before the session closes.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	discard := r.URL.Query().Get("discard") == "true"
	if err := h.svc.CloseSession(r.Context(), chi.URLParam(r, "id"), discard); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveSessionAudio handles DELETE /api/sessions/{id}/audio/{audioID}.
func (h *Handler) RemoveSessionAudio(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveAudio(r.Context(), chi.URLParam(r, "audioID")); err != nil {
		writeError(w, "remove session audio", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// StartRecording handles POST /api/sessions/{id}/recording.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.StartRecording(r.Context()); err != nil {
		writeError(w, "start recording", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// WriteRecording handles PUT /api/sessions/{id}/recording. The raw body is
// appended to the open recording.
func (h *Handler) WriteRecording(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChunkBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if err := sess.WriteRecording(data); err != nil {
		writeError(w, "write recording", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StopRecording handles POST /api/sessions/{id}/recording/stop.
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req StopRecordingRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	a, err := sess.StopRecording(r.Context(), req.Name)
	if err != nil {
		writeError(w, "stop recording", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// CancelRecording handles DELETE /api/sessions/{id}/recording.
func (h *Handler) CancelRecording(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.CancelRecording()
	w.WriteHeader(http.StatusNoContent)
}
