package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/state"
	"github.com/starford/smartstudy/internal/storage"
	"github.com/starford/smartstudy/internal/studyservice"
	"github.com/starford/smartstudy/internal/upload"
)

const (
	filesURLPrefix = "/api/files/"
	// Room for the multipart framing around an upload.MaxSize payload.
	maxUploadBytes = upload.MaxSize + 1<<20
)

// AttachmentHandler serves and accepts File resource payloads.
type AttachmentHandler struct {
	svc   *studyservice.Service
	files storage.Provider
}

// NewAttachmentHandler creates a handler storing payloads in files.
func NewAttachmentHandler(svc *studyservice.Service, files storage.Provider) *AttachmentHandler {
	return &AttachmentHandler{svc: svc, files: files}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal, not hidden).
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.ContainsAny(cleaned, `/\`) {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// ServeFile handles GET /api/files/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name, err := safeName(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, info, err := h.files.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, name, info.UpdatedAt, f)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
// When a "subjectId" field is present, a File resource pointing at the
// stored payload is created as well. The subject is checked before anything
// is written, so a rejected upload leaves no file behind.
//
//	@Summary		Upload a file
//	@Tags			files
//	@Accept			mpfd
//	@Produce		json
//	@Param			file		formData	file	true	"File"
//	@Param			subjectId	formData	string	false	"Subject to attach a File resource to"
//	@Param			title		formData	string	false	"Resource title"
//	@Success		201			{object}	map[string]any
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		413			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	subjectID := r.FormValue("subjectId")
	if subjectID != "" {
		if _, err := h.svc.Subject(subjectID); err != nil {
			writeError(w, "upload", err)
			return
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read file"))
		return
	}
	name := upload.CleanName(header.Filename, "")
	if _, err := upload.Check(name, data); err != nil {
		writeError(w, "upload", err)
		return
	}
	// Existing payloads may be referenced by resources; never replace them.
	if err := h.files.Create(name, data); err != nil {
		writeError(w, "upload", err)
		return
	}

	resp := map[string]any{
		"filename": name,
		"size":     len(data),
		"url":      filesURLPrefix + name,
	}

	if subjectID != "" {
		title := r.FormValue("title")
		if title == "" {
			title = name
		}
		res, err := h.svc.Dispatch(r.Context(), state.PutResource{Resource: models.Resource{
			SubjectID: subjectID,
			Title:     title,
			Type:      models.ResourceFile,
			URL:       filesURLPrefix + name,
		}})
		if err != nil {
			writeError(w, "upload resource", err)
			return
		}
		resp["resource"] = res.Entity
	}

	writeJSON(w, http.StatusCreated, resp)
}
