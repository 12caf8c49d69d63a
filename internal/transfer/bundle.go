// Package transfer exports selected collections as portable bundles and
// imports bundles back with a copy or merge strategy.
package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/models"
)

// Bundle identity.
const (
	AppName = "SmartStudy"
	Version = 1
)

// Data is the entity payload of a bundle.
type Data struct {
	Subjects  []models.Subject  `json:"subjects"`
	Notes     []models.Note     `json:"notes"`
	Tasks     []models.Task     `json:"tasks"`
	Resources []models.Resource `json:"resources"`
}

// Bundle is the export file format.
type Bundle struct {
	AppName    string    `json:"appName"`
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Data       Data      `json:"data"`
}

// Counts holds one number per entity type.
type Counts struct {
	Subjects  int `json:"subjects"`
	Notes     int `json:"notes"`
	Tasks     int `json:"tasks"`
	Resources int `json:"resources"`
}

// Total sums all entity types.
func (c Counts) Total() int { return c.Subjects + c.Notes + c.Tasks + c.Resources }

// Preview describes a bundle before it is committed.
type Preview struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Counts     Counts    `json:"counts"`
}

// Preview summarizes b.
func (b Bundle) Preview() Preview {
	return Preview{
		Version:    b.Version,
		ExportedAt: b.ExportedAt,
		Counts: Counts{
			Subjects:  len(b.Data.Subjects),
			Notes:     len(b.Data.Notes),
			Tasks:     len(b.Data.Tasks),
			Resources: len(b.Data.Resources),
		},
	}
}

// Selection picks what to export. Notes are selected individually and only
// count when their subject is selected too; tasks and resources follow
// their subject.
type Selection struct {
	SubjectIDs []string `json:"subjectIds"`
	NoteIDs    []string `json:"noteIds"`
	// AllNotes exports every note of the selected subjects, ignoring NoteIDs.
	AllNotes bool `json:"allNotes,omitempty"`
}

// SelectAll selects every subject and note in c.
func SelectAll(c models.Collections) Selection {
	sel := Selection{AllNotes: true}
	for _, s := range c.Subjects {
		sel.SubjectIDs = append(sel.SubjectIDs, s.ID)
	}
	return sel
}

// Export builds a bundle from c.
func Export(c models.Collections, sel Selection, now time.Time) Bundle {
	b := Bundle{
		AppName:    AppName,
		Version:    Version,
		ExportedAt: now.UTC(),
		Data: Data{
			Subjects:  []models.Subject{},
			Notes:     []models.Note{},
			Tasks:     []models.Task{},
			Resources: []models.Resource{},
		},
	}
	subjects := func(id string) bool { return slices.Contains(sel.SubjectIDs, id) }

	for _, s := range c.Subjects {
		if subjects(s.ID) {
			b.Data.Subjects = append(b.Data.Subjects, s)
		}
	}
	for _, n := range c.Notes {
		if subjects(n.SubjectID) && (sel.AllNotes || slices.Contains(sel.NoteIDs, n.ID)) {
			b.Data.Notes = append(b.Data.Notes, n)
		}
	}
	for _, t := range c.Tasks {
		if subjects(t.SubjectID) {
			b.Data.Tasks = append(b.Data.Tasks, t)
		}
	}
	for _, r := range c.Resources {
		if subjects(r.SubjectID) {
			b.Data.Resources = append(b.Data.Resources, r)
		}
	}
	return b
}

// Encode writes b as indented JSON.
func Encode(w io.Writer, b Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("transfer: encode: %w", err)
	}
	return nil
}

// Decode reads and validates a bundle. Malformed JSON and a missing or
// foreign appName are rejected with apperr.ErrInvalidBundle.
func Decode(r io.Reader) (Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("transfer: decode: %v: %w", err, apperr.ErrInvalidBundle)
	}
	if b.AppName != AppName {
		return Bundle{}, fmt.Errorf("transfer: appName %q: %w", b.AppName, apperr.ErrInvalidBundle)
	}
	if b.Data.Subjects == nil {
		b.Data.Subjects = []models.Subject{}
	}
	if b.Data.Notes == nil {
		b.Data.Notes = []models.Note{}
	}
	if b.Data.Tasks == nil {
		b.Data.Tasks = []models.Task{}
	}
	if b.Data.Resources == nil {
		b.Data.Resources = []models.Resource{}
	}
	return b, nil
}
