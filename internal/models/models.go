// Package models defines the domain types for SmartStudy.
package models

import (
	"encoding/json"
	"time"
)

// Task statuses.
const (
	StatusTodo  = "todo"
	StatusDoing = "doing"
	StatusDone  = "done"
)

// Task priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Resource types.
const (
	ResourceLink  = "Link"
	ResourceFile  = "File"
	ResourceAudio = "Audio"
)

// AudioResourcePrefix prefixes the id of a Resource that mirrors an in-note recording.
const AudioResourcePrefix = "res-audio-"

// Subject groups tasks, notes and resources.
type Subject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"` // named swatch or hex
	Icon        string `json:"icon"`  // icon key or inline SVG markup
	CreatedAt   string `json:"createdAt,omitempty"`
	IsArchived  bool   `json:"isArchived,omitempty"`
}

// Task is a to-do item owned by a subject.
type Task struct {
	ID        string `json:"id"`
	SubjectID string `json:"subjectId"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	DueDate   string `json:"dueDate"`
	Priority  string `json:"priority"`
}

// Note is a rich-text note. Content holds the composite document
// (visible markup plus hidden summary and audio blocks).
type Note struct {
	ID           string `json:"id"`
	SubjectID    string `json:"subjectId"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	LastModified string `json:"lastModified"`
}

// Resource is a link, uploaded file or audio recording attached to a subject.
type Resource struct {
	ID            string `json:"id"`
	SubjectID     string `json:"subjectId"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	URL           string `json:"url"`
	Transcription string `json:"transcription,omitempty"`
}

// AudioAttachment is a recording embedded in a note document.
type AudioAttachment struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	// LinkedResourceID names the Resource holding the backup copy, if any.
	LinkedResourceID string `json:"linkedResourceId,omitempty"`
}

// ResourceID returns the id of the Resource mirroring this attachment.
func (a AudioAttachment) ResourceID() string {
	if a.LinkedResourceID != "" {
		return a.LinkedResourceID
	}
	return AudioResourcePrefix + a.ID
}

// Kind identifies the entity type held by a TrashItem.
type Kind string

// Trashable kinds.
const (
	KindSubject  Kind = "subject"
	KindTask     Kind = "task"
	KindNote     Kind = "note"
	KindResource Kind = "resource"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSubject, KindTask, KindNote, KindResource:
		return true
	}
	return false
}

// RelatedData holds the children captured when a subject is trashed.
type RelatedData struct {
	Tasks     []Task     `json:"tasks,omitempty"`
	Notes     []Note     `json:"notes,omitempty"`
	Resources []Resource `json:"resources,omitempty"`
}

// TrashItem owns a removed entity until it is restored or purged.
type TrashItem struct {
	ID           string          `json:"id"`
	OriginalID   string          `json:"originalId"`
	Type         Kind            `json:"type"`
	Data         json.RawMessage `json:"data"`
	OriginalName string          `json:"originalName"`
	DeletedAt    time.Time       `json:"deletedAt"`
	RelatedData  *RelatedData    `json:"relatedData,omitempty"`
}
