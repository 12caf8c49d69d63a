package state

import (
	"fmt"
	"time"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/attachment"
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/ids"
	"github.com/starford/smartstudy/internal/kvstore"
	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/transfer"
	"github.com/starford/smartstudy/internal/trash"
)

// Env carries the inputs a reducer may not compute itself.
type Env struct {
	Now time.Time
}

// Keys is an ordered set of storage keys.
type Keys []string

// Add appends keys not already present.
func (k Keys) Add(keys ...string) Keys {
	for _, key := range keys {
		if !k.Has(key) {
			k = append(k, key)
		}
	}
	return k
}

// Has reports whether key is in the set.
func (k Keys) Has(key string) bool {
	for _, v := range k {
		if v == key {
			return true
		}
	}
	return false
}

// Result is the outcome of one reduction.
type Result struct {
	State models.Collections
	// Keys lists the collections that changed and must be persisted.
	Keys Keys

	Trashed  *models.TrashItem
	Restored bool
	Purged   int
	Report   *transfer.Report
	// Entity is the stored form of a Put or note edit.
	Entity any
}

var allCollectionKeys = []string{kvstore.KeySubjects, kvstore.KeyNotes, kvstore.KeyTasks, kvstore.KeyResources}

// Reduce applies a to c. c is never modified; on error the returned Result
// is zero.
func Reduce(c models.Collections, a Action, env Env) (Result, error) {
	switch a := a.(type) {
	case PutSubject:
		s := a.Subject
		if s.ID == "" {
			s.ID = ids.New()
		}
		if s.CreatedAt == "" {
			s.CreatedAt = timestamp(env.Now)
		}
		if err := s.Validate(); err != nil {
			return Result{}, invalid("subject", err)
		}
		out := c.Clone()
		out.Subjects = upsert(out.Subjects, s, func(v models.Subject) string { return v.ID })
		return Result{State: out, Keys: Keys{kvstore.KeySubjects}, Entity: s}, nil

	case PutTask:
		t := a.Task
		if t.ID == "" {
			t.ID = ids.New()
		}
		if t.Status == "" {
			t.Status = models.StatusTodo
		}
		if t.Priority == "" {
			t.Priority = models.PriorityMedium
		}
		if err := t.Validate(); err != nil {
			return Result{}, invalid("task", err)
		}
		if err := requireSubject(c, t.SubjectID); err != nil {
			return Result{}, err
		}
		out := c.Clone()
		out.Tasks = upsert(out.Tasks, t, func(v models.Task) string { return v.ID })
		return Result{State: out, Keys: Keys{kvstore.KeyTasks}, Entity: t}, nil

	case PutNote:
		n := a.Note
		if n.ID == "" {
			n.ID = ids.New()
		}
		n.LastModified = timestamp(env.Now)
		if err := n.Validate(); err != nil {
			return Result{}, invalid("note", err)
		}
		if err := requireSubject(c, n.SubjectID); err != nil {
			return Result{}, err
		}
		out := c.Clone()
		out.Notes = upsert(out.Notes, n, func(v models.Note) string { return v.ID })
		return Result{State: out, Keys: Keys{kvstore.KeyNotes}, Entity: n}, nil

	case PutResource:
		r := a.Resource
		if r.ID == "" {
			r.ID = ids.New()
		}
		if err := r.Validate(); err != nil {
			return Result{}, invalid("resource", err)
		}
		if err := requireSubject(c, r.SubjectID); err != nil {
			return Result{}, err
		}
		out := c.Clone()
		out.Resources = upsert(out.Resources, r, func(v models.Resource) string { return v.ID })
		return Result{State: out, Keys: Keys{kvstore.KeyResources}, Entity: r}, nil

	case SoftDelete:
		out, item, err := trash.SoftDelete(c, a.Kind, a.ID, env.Now)
		if err != nil {
			return Result{}, err
		}
		return Result{State: out, Keys: keysFor(a.Kind).Add(kvstore.KeyTrash), Trashed: &item}, nil

	case Restore:
		out, ok, err := trash.Restore(c, a.TrashID)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{State: c}, nil
		}
		item, _ := c.FindTrash(a.TrashID)
		return Result{State: out, Keys: keysFor(item.Type).Add(kvstore.KeyTrash), Restored: true}, nil

	case Purge:
		out, ok := trash.Purge(c, a.TrashID)
		if !ok {
			return Result{}, fmt.Errorf("state: trash %s: %w", a.TrashID, apperr.ErrNotFound)
		}
		return Result{State: out, Keys: Keys{kvstore.KeyTrash}, Purged: 1}, nil

	case EmptyTrash:
		out, n := trash.Empty(c)
		return Result{State: out, Keys: Keys{kvstore.KeyTrash}, Purged: n}, nil

	case Import:
		out, rep, err := transfer.Import(c, a.Data, a.Strategy)
		if err != nil {
			return Result{}, err
		}
		return Result{State: out, Keys: Keys(nil).Add(allCollectionKeys...), Report: &rep}, nil

	case SaveNoteDocument:
		return saveNote(c, a.NoteID, a.Title, a.Document, env)

	case RemoveNoteAudio:
		n, ok := c.FindNote(a.NoteID)
		if !ok {
			return Result{}, fmt.Errorf("state: note %s: %w", a.NoteID, apperr.ErrNotFound)
		}
		d, resID, ok := attachment.RemoveAudio(document.Decode(n.Content), a.AudioID)
		if !ok {
			return Result{}, fmt.Errorf("state: note %s audio %s: %w", a.NoteID, a.AudioID, apperr.ErrNotFound)
		}
		res, err := saveNote(c, a.NoteID, "", d, env)
		if err != nil {
			return Result{}, err
		}
		// Only a live Audio resource counts as the mirror; an unrelated
		// resource that happens to share the id is left alone.
		if r, ok := res.State.FindResource(resID); ok && r.Type == models.ResourceAudio {
			out, item, err := trash.SoftDelete(res.State, models.KindResource, resID, env.Now)
			if err != nil {
				return Result{}, err
			}
			res.State = out
			res.Trashed = &item
			res.Keys = res.Keys.Add(kvstore.KeyResources, kvstore.KeyTrash)
		}
		return res, nil

	case RemoveNoteImage:
		n, ok := c.FindNote(a.NoteID)
		if !ok {
			return Result{}, fmt.Errorf("state: note %s: %w", a.NoteID, apperr.ErrNotFound)
		}
		d, err := attachment.RemoveImage(document.Decode(n.Content), a.Index)
		if err != nil {
			return Result{}, err
		}
		return saveNote(c, a.NoteID, "", d, env)

	case RemoveNoteLink:
		n, ok := c.FindNote(a.NoteID)
		if !ok {
			return Result{}, fmt.Errorf("state: note %s: %w", a.NoteID, apperr.ErrNotFound)
		}
		d, err := attachment.RemoveLink(document.Decode(n.Content), a.Index)
		if err != nil {
			return Result{}, err
		}
		return saveNote(c, a.NoteID, "", d, env)
	}
	return Result{}, fmt.Errorf("state: unknown action %T: %w", a, apperr.ErrValidation)
}

func saveNote(c models.Collections, id, title string, d document.Decoded, env Env) (Result, error) {
	n, ok := c.FindNote(id)
	if !ok {
		return Result{}, fmt.Errorf("state: note %s: %w", id, apperr.ErrNotFound)
	}
	if title != "" {
		n.Title = title
	}
	n.Content = document.EncodeDecoded(d)
	n.LastModified = timestamp(env.Now)

	out := c.Clone()
	out.Notes = upsert(out.Notes, n, func(v models.Note) string { return v.ID })
	return Result{State: out, Keys: Keys{kvstore.KeyNotes}, Entity: n}, nil
}

func keysFor(k models.Kind) Keys {
	switch k {
	case models.KindSubject:
		return Keys(nil).Add(allCollectionKeys...)
	case models.KindTask:
		return Keys{kvstore.KeyTasks}
	case models.KindNote:
		return Keys{kvstore.KeyNotes}
	case models.KindResource:
		return Keys{kvstore.KeyResources}
	}
	return nil
}

func requireSubject(c models.Collections, id string) error {
	if _, ok := c.FindSubject(id); !ok {
		return fmt.Errorf("state: subject %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func invalid(what string, err error) error {
	return fmt.Errorf("state: %s: %v: %w", what, err, apperr.ErrValidation)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func upsert[T any](list []T, v T, key func(T) string) []T {
	for i := range list {
		if key(list[i]) == key(v) {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}
