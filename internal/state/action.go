// Package state holds the reducers that apply user actions to the
// application collections. Reducers are pure: they return a new value and
// the storage keys that changed, and leave persistence to the caller.
package state

import (
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/transfer"
)

// Action is a state transition. The set of actions is closed.
type Action interface{ action() }

// PutSubject creates or replaces a subject. An empty ID is assigned.
type PutSubject struct{ Subject models.Subject }

// PutTask creates or replaces a task.
type PutTask struct{ Task models.Task }

// PutNote creates or replaces a note.
type PutNote struct{ Note models.Note }

// PutResource creates or replaces a resource.
type PutResource struct{ Resource models.Resource }

// SoftDelete moves a live entity to the trash.
type SoftDelete struct {
	Kind models.Kind
	ID   string
}

// Restore moves a trash record back to the live collections.
type Restore struct{ TrashID string }

// Purge permanently removes one trash record.
type Purge struct{ TrashID string }

// EmptyTrash permanently removes every trash record.
type EmptyTrash struct{}

// Import applies a bundle's data with a strategy.
type Import struct {
	Data     transfer.Data
	Strategy transfer.Strategy
}

// SaveNoteDocument encodes an editing state into a note. A non-empty Title
// renames the note.
type SaveNoteDocument struct {
	NoteID   string
	Title    string
	Document document.Decoded
}

// RemoveNoteAudio drops an audio attachment from a note and trashes the
// Audio resource mirroring it, if that resource is live.
type RemoveNoteAudio struct {
	NoteID  string
	AudioID string
}

// RemoveNoteImage drops the Index-th image of a note.
type RemoveNoteImage struct {
	NoteID string
	Index  int
}

// RemoveNoteLink unwraps the Index-th link of a note.
type RemoveNoteLink struct {
	NoteID string
	Index  int
}

func (PutSubject) action()       {}
func (PutTask) action()          {}
func (PutNote) action()          {}
func (PutResource) action()      {}
func (SoftDelete) action()       {}
func (Restore) action()          {}
func (Purge) action()            {}
func (EmptyTrash) action()       {}
func (Import) action()           {}
func (SaveNoteDocument) action() {}
func (RemoveNoteAudio) action()  {}
func (RemoveNoteImage) action()  {}
func (RemoveNoteLink) action()   {}
