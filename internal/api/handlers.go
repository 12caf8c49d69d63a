package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/state"
	"github.com/starford/smartstudy/internal/studyservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *studyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *studyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// put dispatches an upsert and writes the stored entity.
func (h *Handler) put(w http.ResponseWriter, r *http.Request, op string, status int, a state.Action) {
	res, err := h.svc.Dispatch(r.Context(), a)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, status, res.Entity)
}

// ListSubjects handles GET /api/subjects.
//
//	@Summary		List subjects
//	@Tags			subjects
//	@Produce		json
//	@Param			archived	query		bool	false	"Include archived subjects"
//	@Success		200			{array}		models.Subject
//	@Security		BearerAuth
//	@Router			/subjects [get]
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	archived := r.URL.Query().Get("archived") == "true"
	writeJSON(w, http.StatusOK, map[string]any{
		"subjects": h.svc.Subjects(archived),
	})
}

// GetSubject handles GET /api/subjects/{id}.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Subject(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get subject", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// CreateSubject handles POST /api/subjects.
//
//	@Summary		Create a subject
//	@Tags			subjects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Subject	true	"Subject to create"
//	@Success		201		{object}	models.Subject
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/subjects [post]
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var s models.Subject
	if !decodeJSON(w, r, &s) {
		return
	}
	s.ID = ""
	h.put(w, r, "create subject", http.StatusCreated, state.PutSubject{Subject: s})
}

// UpdateSubject handles PUT /api/subjects/{id}.
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Subject(id); err != nil {
		writeError(w, "update subject", err)
		return
	}
	var s models.Subject
	if !decodeJSON(w, r, &s) {
		return
	}
	s.ID = id
	h.put(w, r, "update subject", http.StatusOK, state.PutSubject{Subject: s})
}

// ListTasks handles GET /api/tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": h.svc.Tasks(r.URL.Query().Get("subjectId")),
	})
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if !decodeJSON(w, r, &t) {
		return
	}
	t.ID = ""
	h.put(w, r, "create task", http.StatusCreated, state.PutTask{Task: t})
}

// UpdateTask handles PUT /api/tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if !decodeJSON(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	h.put(w, r, "update task", http.StatusOK, state.PutTask{Task: t})
}

// ListResources handles GET /api/resources.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": h.svc.Resources(r.URL.Query().Get("subjectId")),
	})
}

// CreateResource handles POST /api/resources.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var res models.Resource
	if !decodeJSON(w, r, &res) {
		return
	}
	res.ID = ""
	h.put(w, r, "create resource", http.StatusCreated, state.PutResource{Resource: res})
}

// UpdateResource handles PUT /api/resources/{id}.
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var res models.Resource
	if !decodeJSON(w, r, &res) {
		return
	}
	res.ID = chi.URLParam(r, "id")
	h.put(w, r, "update resource", http.StatusOK, state.PutResource{Resource: res})
}

// deleteEntity moves a live entity of the given kind to the trash and
// returns the trash record.
//
//	@Summary		Move an entity to the trash
//	@Tags			trash
//	@Produce		json
//	@Param			id	path		string	true	"Entity id"
//	@Success		200	{object}	models.TrashItem
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
func (h *Handler) deleteEntity(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.svc.Dispatch(r.Context(), state.SoftDelete{Kind: kind, ID: chi.URLParam(r, "id")})
		if err != nil {
			writeError(w, "delete "+string(kind), err)
			return
		}
		writeJSON(w, http.StatusOK, res.Trashed)
	}
}
