package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/storage"
	"github.com/starford/smartstudy/internal/studyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events. That route and file
// downloads also accept the token as a query parameter.
// files stores uploaded File resource payloads.
func NewRouter(svc *studyservice.Service, files storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(svc, files)

	root := chi.NewRouter()

	// Routes a browser requests directly.
	root.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token, true))
		r.Get("/files/{filename}", ah.ServeFile)
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	root.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token, false))
		routes(r, h, ah)
	})

	return root
}

func routes(r chi.Router, h *Handler, ah *AttachmentHandler) {
	r.Route("/subjects", func(r chi.Router) {
		r.Get("/", h.ListSubjects)
		r.Post("/", h.CreateSubject)
		r.Get("/{id}", h.GetSubject)
		r.Put("/{id}", h.UpdateSubject)
		r.Delete("/{id}", h.deleteEntity(models.KindSubject))
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Put("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.deleteEntity(models.KindTask))
	})

	r.Route("/resources", func(r chi.Router) {
		r.Get("/", h.ListResources)
		r.Post("/", h.CreateResource)
		r.Put("/{id}", h.UpdateResource)
		r.Delete("/{id}", h.deleteEntity(models.KindResource))
	})

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Get("/{id}", h.GetNote)
		r.Put("/{id}", h.SaveNote)
		r.Delete("/{id}", h.deleteEntity(models.KindNote))
		r.Get("/{id}/print", h.PrintNote)
		r.Get("/{id}/attachments", h.NoteAttachments)
		r.Delete("/{id}/audio/{audioID}", h.RemoveNoteAudio)
		r.Delete("/{id}/images/{index}", h.RemoveNoteImage)
		r.Delete("/{id}/links/{index}", h.RemoveNoteLink)
	})

	r.Route("/trash", func(r chi.Router) {
		r.Get("/", h.ListTrash)
		r.Delete("/", h.EmptyTrash)
		r.Post("/{id}/restore", h.RestoreTrash)
		r.Delete("/{id}", h.PurgeTrash)
	})

	r.Get("/export", h.ExportAll)
	r.Post("/export", h.Export)

	r.Route("/imports", func(r chi.Router) {
		r.Get("/", h.ListImports)
		r.Post("/", h.PreviewImport)
		r.Post("/{token}/commit", h.CommitImport)
		r.Delete("/{token}", h.DiscardImport)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.OpenSession)
		r.Get("/{id}", h.GetSession)
		r.Patch("/{id}", h.EditSession)
		r.Delete("/{id}", h.CloseSession)
		r.Post("/{id}/save", h.SaveSession)
		r.Post("/{id}/minimize", h.MinimizeSession)
		r.Post("/{id}/resume", h.ResumeSession)
		r.Delete("/{id}/audio/{audioID}", h.RemoveSessionAudio)
		r.Post("/{id}/recording", h.StartRecording)
		r.Put("/{id}/recording", h.WriteRecording)
		r.Post("/{id}/recording/stop", h.StopRecording)
		r.Delete("/{id}/recording", h.CancelRecording)
	})

	r.Get("/search", h.Search)
	r.Get("/storage", h.Storage)
	r.Get("/preferences", h.GetPreferences)
	r.Patch("/preferences", h.UpdatePreferences)

	r.Post("/attachments", ah.Upload)
}
