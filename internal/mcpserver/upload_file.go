package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/state"
	"github.com/starford/smartstudy/internal/upload"
)

const filesURLPrefix = "/api/files/"

type uploadResult struct {
	URL      string          `json:"url"`
	Resource models.Resource `json:"resource"`
}

// uploadFile stores a data URI or downloaded file as a File resource of the
// subject. Validation is shared with the REST upload.
func (s *Server) uploadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjectID, err := req.RequireString("subjectId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Subject(subjectID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("subject not found: %s", subjectID)), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data []byte
	var ext string
	if strings.HasPrefix(rawURL, "data:") {
		data, ext, err = upload.DecodeDataURI(rawURL)
	} else {
		data, ext, err = s.fetch.Fetch(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := req.GetString("filename", "")
	if name == "" {
		name = upload.NameFromURL(rawURL, ext)
	}
	name = upload.CleanName(name, ext)
	if _, err := upload.Check(name, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.files.Create(name, data); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", name)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to save file: %v", err)), nil
	}

	title := req.GetString("title", "")
	if title == "" {
		title = name
	}
	res, err := s.svc.Dispatch(ctx, state.PutResource{Resource: models.Resource{
		SubjectID: subjectID,
		Title:     title,
		Type:      models.ResourceFile,
		URL:       filesURLPrefix + name,
	}})
	if err != nil && !errors.Is(err, apperr.ErrStorage) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, _ := res.Entity.(models.Resource)
	return jsonResult(uploadResult{URL: filesURLPrefix + name, Resource: r})
}
