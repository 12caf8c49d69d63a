// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes SmartStudy tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/storage"
	"github.com/starford/smartstudy/internal/studyservice"
	"github.com/starford/smartstudy/internal/upload"
)

const noteFormatURI = "smartstudy://note-format"

// Server wraps the MCP server with SmartStudy tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *studyservice.Service
	files storage.Provider
	fetch *upload.Fetcher
}

// New creates a new MCP server with all SmartStudy tools registered.
// files receives payloads uploaded through upload_file.
func New(svc *studyservice.Service, files storage.Provider) *Server {
	s := &Server{svc: svc, files: files, fetch: upload.NewFetcher()}

	s.mcp = server.NewMCPServer(
		"SmartStudy",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search note titles and text, and task titles. Hidden summaries are searched too; recordings are not."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of note hits (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's title and visible content. Hidden summary and audio blocks are left out."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_subjects",
		mcp.WithDescription("List subjects with their note and task counts."),
		mcp.WithBoolean("includeArchived", mcp.Description("Include archived subjects")),
	), s.listSubjects)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recently modified first, optionally for one subject."),
		mcp.WithString("subjectId", mcp.Description("Optional subject id (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_attachments",
		mcp.WithDescription("List the images, links and audio recordings of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.listAttachments)

	s.mcp.AddTool(mcp.NewTool("set_note_summary",
		mcp.WithDescription("Store a summary on a note. The summary is kept hidden in the note "+
			"and replaces any previous one; visible content and recordings are unchanged. "+
			"Read the format via get_note_format or the "+noteFormatURI+" resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Summary as simple HTML; empty removes it")),
	), s.setNoteSummary)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns the SmartStudy note format. Call this before writing summaries."),
	), s.getNoteFormat)

	s.mcp.AddTool(mcp.NewTool("upload_file",
		mcp.WithDescription("Store a file from a data URI or http(s) URL and add it to a subject as a File resource."),
		mcp.WithString("subjectId", mcp.Required(), mcp.Description("Subject that owns the resource")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data: URI (base64) or http(s) URL")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
		mcp.WithString("title", mcp.Description("Optional resource title; defaults to the file name")),
	), s.uploadFile)

	// Resource: note format.
	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format",
			mcp.WithResourceDescription("How note content stores visible text, the summary and recordings."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 20)
	return jsonResult(s.svc.Search(query, limit))
}

type noteText struct {
	ID           string `json:"id"`
	SubjectID    string `json:"subjectId"`
	Title        string `json:"title"`
	LastModified string `json:"lastModified"`
	Content      string `json:"content"`
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, clean, err := s.svc.PrintableNote(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(noteText{
		ID:           n.ID,
		SubjectID:    n.SubjectID,
		Title:        n.Title,
		LastModified: n.LastModified,
		Content:      clean,
	})
}

type subjectItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Notes      int    `json:"notes"`
	Tasks      int    `json:"tasks"`
	IsArchived bool   `json:"isArchived,omitempty"`
}

func (s *Server) listSubjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjects := s.svc.Subjects(req.GetBool("includeArchived", false))
	items := make([]subjectItem, len(subjects))
	for i, sub := range subjects {
		items[i] = subjectItem{
			ID:         sub.ID,
			Name:       sub.Name,
			Notes:      len(s.svc.Notes(sub.ID)),
			Tasks:      len(s.svc.Tasks(sub.ID)),
			IsArchived: sub.IsArchived,
		}
	}
	return jsonResult(items)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Notes(req.GetString("subjectId", "")))
}

type audioItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"createdAt"`
	ResourceID string `json:"resourceId"`
	Size       int    `json:"size"`
}

type attachmentList struct {
	Images    any         `json:"images"`
	Links     any         `json:"links"`
	Audios    []audioItem `json:"audios"`
	SizeLabel string      `json:"sizeLabel"`
}

func (s *Server) listAttachments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Note(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	att := note.Attachments
	// Recording payloads are summarized by size only.
	audios := make([]audioItem, len(att.Audios))
	for i, a := range att.Audios {
		audios[i] = audioItem{
			ID:         a.ID,
			Name:       a.Name,
			CreatedAt:  a.CreatedAt,
			ResourceID: a.ResourceID(),
			Size:       len(a.URL),
		}
	}
	return jsonResult(attachmentList{
		Images:    att.Images,
		Links:     att.Links,
		Audios:    audios,
		SizeLabel: att.SizeLabel,
	})
}

func (s *Server) setNoteSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := req.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.svc.Note(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	d := note.Document
	d.Summary = summary

	// The checksum guards against an edit landing between the read and the save.
	if _, err := s.svc.SaveNote(ctx, id, "", d, note.Checksum); err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			return mcp.NewToolResultError("note changed while saving, read it again and retry"), nil
		case errors.Is(err, apperr.ErrStorage):
			return mcp.NewToolResultError("summary applied but could not be persisted: " + err.Error()), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("summary saved: %s", id)), nil
}

func (s *Server) getNoteFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
