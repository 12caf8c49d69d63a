package api

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/state"
)

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, most recently modified first
//	@Tags			notes
//	@Produce		json
//	@Param			subjectId	query		string	false	"Filter by subject"
//	@Success		200			{array}		NoteListItem
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items := h.svc.Notes(r.URL.Query().Get("subjectId"))
	writeJSON(w, http.StatusOK, map[string]any{
		"notes": items,
		"total": len(items),
	})
}

// GetNote handles GET /api/notes/{id}. The checksum is also sent as an ETag.
//
//	@Summary		Get a decoded note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.Note(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n := models.Note{SubjectID: req.SubjectID, Title: req.Title, Content: req.Content}
	h.put(w, r, "create note", http.StatusCreated, state.PutNote{Note: n})
}

// SaveNote handles PUT /api/notes/{id}.
//
//	@Summary		Save a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Note id"
//	@Param			If-Match	header		string			false	"Checksum for optimistic concurrency"
//	@Param			body		body		SaveNoteRequest	true	"Editing state"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SaveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.SaveNote(r.Context(), id, req.Title, req.Document, ifMatch)
	if err != nil {
		writeError(w, "save note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, note)
}

// PrintNote handles GET /api/notes/{id}/print. It returns a standalone HTML
// page with the visible content only, for a PDF renderer.
func (h *Handler) PrintNote(w http.ResponseWriter, r *http.Request) {
	n, clean, err := h.svc.PrintableNote(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "print note", err)
		return
	}
	title := html.EscapeString(n.Title)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head>\n<body><h1>%s</h1>\n%s\n</body></html>\n",
		title, title, clean)
}

// NoteAttachments handles GET /api/notes/{id}/attachments.
func (h *Handler) NoteAttachments(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.Note(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "note attachments", err)
		return
	}
	writeJSON(w, http.StatusOK, note.Attachments)
}

// RemoveNoteAudio handles DELETE /api/notes/{id}/audio/{audioID}. The
// mirrored Audio resource is moved to the trash with it.
func (h *Handler) RemoveNoteAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a := state.RemoveNoteAudio{NoteID: id, AudioID: chi.URLParam(r, "audioID")}
	h.editNote(w, r, "remove note audio", id, a)
}

// RemoveNoteImage handles DELETE /api/notes/{id}/images/{index}.
func (h *Handler) RemoveNoteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idx, ok := intParam(w, "index", chi.URLParam(r, "index"))
	if !ok {
		return
	}
	h.editNote(w, r, "remove note image", id, state.RemoveNoteImage{NoteID: id, Index: idx})
}

// RemoveNoteLink handles DELETE /api/notes/{id}/links/{index}. The anchor is
// unwrapped; its text stays in the note.
func (h *Handler) RemoveNoteLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idx, ok := intParam(w, "index", chi.URLParam(r, "index"))
	if !ok {
		return
	}
	h.editNote(w, r, "remove note link", id, state.RemoveNoteLink{NoteID: id, Index: idx})
}

func (h *Handler) editNote(w http.ResponseWriter, r *http.Request, op, id string, a state.Action) {
	if _, err := h.svc.Dispatch(r.Context(), a); err != nil {
		writeError(w, op, err)
		return
	}
	note, err := h.svc.Note(id)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
