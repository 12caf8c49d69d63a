package api

import (
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/studyservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	SubjectID string `json:"subjectId" example:"1" validate:"required"`
	Title     string `json:"title" example:"Đạo hàm" validate:"required"`
	Content   string `json:"content" example:"<p>Ghi chú</p>"`
}

// SaveNoteRequest replaces a note's editable state. The visible content,
// audio attachments and summary are re-encoded into one document.
type SaveNoteRequest struct {
	Title    string           `json:"title"`
	Document document.Decoded `json:"document" validate:"required"`
}

// CommitImportRequest picks the strategy for a staged import.
type CommitImportRequest struct {
	Strategy string `json:"strategy" example:"merge" validate:"required"`
}

// OpenSessionRequest opens an editor session on a note.
type OpenSessionRequest struct {
	NoteID string `json:"noteId" validate:"required"`
}

// EditSessionRequest applies the present fields to a session.
type EditSessionRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

// StopRecordingRequest names the finished recording. An empty name gets a
// timestamped default.
type StopRecordingRequest struct {
	Name string `json:"name"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = studyservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = studyservice.NoteListItem
