package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/storage"
	"github.com/starford/smartstudy/internal/studyservice"
	"github.com/starford/smartstudy/internal/testutil"
)

func testServer(t *testing.T) (*Server, *studyservice.Service, storage.Provider) {
	t.Helper()
	_, files := testutil.TestFiles(t)
	svc := testutil.TestService(t)
	return New(svc, files), svc, files
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "list_subjects":
		result, err = srv.listSubjects(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "list_attachments":
		result, err = srv.listAttachments(ctx, req)
	case "set_note_summary":
		result, err = srv.setNoteSummary(ctx, req)
	case "get_note_format":
		result, err = srv.getNoteFormat(ctx, req)
	case "upload_file":
		result, err = srv.uploadFile(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSetSummaryAndReadNote(t *testing.T) {
	srv, svc, _ := testServer(t)

	r := callTool(t, srv, "set_note_summary", map[string]interface{}{
		"id":      "n1",
		"summary": "<p>Tóm tắt useEffect</p>",
	})
	if r.IsError {
		t.Fatalf("set summary: %s", resultText(r))
	}
	note, err := svc.Note("n1")
	if err != nil {
		t.Fatal(err)
	}
	if note.Document.Summary != "<p>Tóm tắt useEffect</p>" {
		t.Errorf("summary = %q", note.Document.Summary)
	}
	if !strings.HasPrefix(note.Document.Visible, "useEffect chạy") {
		t.Errorf("visible content changed: %q", note.Document.Visible)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"id": "n1"})
	text := resultText(r)
	if strings.Contains(text, "Tóm tắt") {
		t.Error("read_note leaked the hidden summary")
	}
	var got noteText
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if got.Title != "Ghi chú về useEffect" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
	r = callTool(t, srv, "set_note_summary", map[string]interface{}{"id": "nope", "summary": "x"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestSearchNotes(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "đạo hàm"})
	var res studyservice.SearchResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Notes) != 1 || res.Notes[0].ID != "n2" {
		t.Errorf("hits = %+v", res.Notes)
	}

	r = callTool(t, srv, "search_notes", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without query")
	}
}

func TestListSubjectsAndNotes(t *testing.T) {
	srv, _, _ := testServer(t)

	var subjects []subjectItem
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "list_subjects", map[string]interface{}{}))), &subjects)
	if len(subjects) != 4 {
		t.Fatalf("subjects = %d, want 4", len(subjects))
	}
	if subjects[0].ID != "1" || subjects[0].Tasks != 2 || subjects[0].Notes != 1 {
		t.Errorf("first subject = %+v", subjects[0])
	}

	var notes []studyservice.NoteListItem
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "list_notes", map[string]interface{}{"subjectId": "2"}))), &notes)
	if len(notes) != 1 || notes[0].ID != "n1" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestListAttachments(t *testing.T) {
	srv, svc, _ := testServer(t)

	note, _ := svc.Note("n1")
	d := note.Document
	d.Visible = `<p><img src="a.png" alt="A"><a href="https://react.dev">docs</a></p>`
	d.Audios = []models.AudioAttachment{{ID: "a1", Name: "rec", URL: "data:audio/webm;base64,AAAA"}}
	if _, err := svc.SaveNote(context.Background(), "n1", "", d, ""); err != nil {
		t.Fatal(err)
	}

	text := resultText(callTool(t, srv, "list_attachments", map[string]interface{}{"id": "n1"}))
	if strings.Contains(text, "base64") {
		t.Error("recording payload included")
	}
	var got attachmentList
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Audios) != 1 || got.Audios[0].ResourceID != "res-audio-a1" {
		t.Errorf("audios = %+v", got.Audios)
	}
	if !strings.Contains(text, "a.png") || !strings.Contains(text, "react.dev") {
		t.Errorf("images or links missing: %s", text)
	}
}

func TestGetNoteFormat(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_note_format", nil))
	if !strings.Contains(text, "ai-summary-content") || !strings.Contains(text, "smartstudy-audio-data") {
		t.Error("format description incomplete")
	}
}

// Minimal PNG header.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestUploadFile_DataURI(t *testing.T) {
	srv, svc, files := testServer(t)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	r := callTool(t, srv, "upload_file", map[string]interface{}{
		"subjectId": "1",
		"url":       uri,
		"filename":  "so do.png",
	})
	if r.IsError {
		t.Fatalf("upload: %s", resultText(r))
	}
	var got uploadResult
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got.URL != "/api/files/so_do.png" || got.Resource.Type != models.ResourceFile {
		t.Errorf("result = %+v", got)
	}
	if _, err := files.Read("so_do.png"); err != nil {
		t.Errorf("file not stored: %v", err)
	}
	if len(svc.Resources("1")) != 2 {
		t.Errorf("resources for subject 1 = %d, want 2", len(svc.Resources("1")))
	}

	// Same name again.
	r = callTool(t, srv, "upload_file", map[string]interface{}{"subjectId": "1", "url": uri, "filename": "so do.png"})
	if !r.IsError {
		t.Error("expected error for existing file")
	}
}

func TestUploadFile_Rejects(t *testing.T) {
	srv, _, _ := testServer(t)

	cases := map[string]map[string]interface{}{
		"unknown subject": {"subjectId": "nope", "url": "data:image/png;base64,AAAA"},
		"bad mime":        {"subjectId": "1", "url": "data:application/x-msdownload;base64,aGVsbG8="},
		"not base64":      {"subjectId": "1", "url": "data:image/png,raw"},
		"magic mismatch":  {"subjectId": "1", "url": "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png"))},
		"scheme":          {"subjectId": "1", "url": "file:///etc/passwd"},
		"loopback":        {"subjectId": "1", "url": "http://127.0.0.1/a.png"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if r := callTool(t, srv, "upload_file", args); !r.IsError {
				t.Errorf("expected error, got %s", resultText(r))
			}
		})
	}
}
