// Package trash moves entities between the live collections and the trash.
//
// Every function takes collections by value and returns an updated copy; the
// input is never modified. This is the only package that writes the trash
// collection.
package trash

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/ids"
	"github.com/starford/smartstudy/internal/models"
)

// SoftDelete removes the entity of kind with id from the live collections
// and records it in the trash. Trashing a subject also removes, and
// snapshots, every task, note and resource that belongs to it.
func SoftDelete(c models.Collections, kind models.Kind, id string, now time.Time) (models.Collections, models.TrashItem, error) {
	c = c.Clone()
	item := models.TrashItem{
		ID:         ids.New(),
		OriginalID: id,
		Type:       kind,
		DeletedAt:  now.UTC(),
	}

	var (
		entity any
		found  bool
	)
	switch kind {
	case models.KindSubject:
		var s models.Subject
		if s, found = c.FindSubject(id); found {
			entity, item.OriginalName = s, s.Name
			c.Subjects = removeByID(c.Subjects, id, subjectID)
			item.RelatedData = detachChildren(&c, id)
		}
	case models.KindTask:
		var t models.Task
		if t, found = c.FindTask(id); found {
			entity, item.OriginalName = t, t.Title
			c.Tasks = removeByID(c.Tasks, id, taskID)
		}
	case models.KindNote:
		var n models.Note
		if n, found = c.FindNote(id); found {
			entity, item.OriginalName = n, n.Title
			c.Notes = removeByID(c.Notes, id, noteID)
		}
	case models.KindResource:
		var r models.Resource
		if r, found = c.FindResource(id); found {
			entity, item.OriginalName = r, r.Title
			c.Resources = removeByID(c.Resources, id, resourceID)
		}
	default:
		return c, models.TrashItem{}, fmt.Errorf("trash: kind %q: %w", kind, apperr.ErrValidation)
	}
	if !found {
		return c, models.TrashItem{}, fmt.Errorf("trash: %s %s: %w", kind, id, apperr.ErrNotFound)
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return c, models.TrashItem{}, fmt.Errorf("trash: snapshot %s %s: %w", kind, id, err)
	}
	item.Data = data

	c.Trash = append([]models.TrashItem{item}, c.Trash...)
	return c, item, nil
}

// detachChildren removes the live children of subjectID from c and returns
// them.
func detachChildren(c *models.Collections, subjectID string) *models.RelatedData {
	rel := &models.RelatedData{}
	c.Tasks, rel.Tasks = partition(c.Tasks, func(t models.Task) bool { return t.SubjectID == subjectID })
	c.Notes, rel.Notes = partition(c.Notes, func(n models.Note) bool { return n.SubjectID == subjectID })
	c.Resources, rel.Resources = partition(c.Resources, func(r models.Resource) bool { return r.SubjectID == subjectID })
	return rel
}

// Restore moves the trash record trashID back into the live collections,
// including any related entities captured with it. An entity whose id is
// already live replaces the live one. ok is false when trashID is unknown;
// that is not an error.
func Restore(c models.Collections, trashID string) (out models.Collections, ok bool, err error) {
	item, found := c.FindTrash(trashID)
	if !found {
		return c, false, nil
	}
	out = c.Clone()

	switch item.Type {
	case models.KindSubject:
		var s models.Subject
		if err := json.Unmarshal(item.Data, &s); err != nil {
			return c, false, corrupt(item, err)
		}
		out.Subjects = upsert(out.Subjects, s, subjectID)
	case models.KindTask:
		var t models.Task
		if err := json.Unmarshal(item.Data, &t); err != nil {
			return c, false, corrupt(item, err)
		}
		out.Tasks = upsert(out.Tasks, t, taskID)
	case models.KindNote:
		var n models.Note
		if err := json.Unmarshal(item.Data, &n); err != nil {
			return c, false, corrupt(item, err)
		}
		out.Notes = upsert(out.Notes, n, noteID)
	case models.KindResource:
		var r models.Resource
		if err := json.Unmarshal(item.Data, &r); err != nil {
			return c, false, corrupt(item, err)
		}
		out.Resources = upsert(out.Resources, r, resourceID)
	default:
		return c, false, fmt.Errorf("trash: restore %s: kind %q: %w", trashID, item.Type, apperr.ErrValidation)
	}

	if rel := item.RelatedData; rel != nil {
		for _, t := range rel.Tasks {
			out.Tasks = upsert(out.Tasks, t, taskID)
		}
		for _, n := range rel.Notes {
			out.Notes = upsert(out.Notes, n, noteID)
		}
		for _, r := range rel.Resources {
			out.Resources = upsert(out.Resources, r, resourceID)
		}
	}

	out.Trash = removeByID(out.Trash, trashID, trashItemID)
	return out, true, nil
}

func corrupt(item models.TrashItem, err error) error {
	return fmt.Errorf("trash: restore %s: corrupt snapshot: %v: %w", item.ID, err, apperr.ErrValidation)
}

// Purge permanently drops the trash record trashID. Related data captured
// with it goes too; nothing live is touched. ok is false when trashID is
// unknown.
func Purge(c models.Collections, trashID string) (models.Collections, bool) {
	if _, found := c.FindTrash(trashID); !found {
		return c, false
	}
	c = c.Clone()
	c.Trash = removeByID(c.Trash, trashID, trashItemID)
	return c, true
}

// Empty purges every trash record and reports how many were dropped.
func Empty(c models.Collections) (models.Collections, int) {
	n := len(c.Trash)
	c = c.Clone()
	c.Trash = []models.TrashItem{}
	return c, n
}

func subjectID(s models.Subject) string { return s.ID }
func taskID(t models.Task) string { return t.ID }
func noteID(n models.Note) string { return n.ID }
func resourceID(r models.Resource) string { return r.ID }
func trashItemID(t models.TrashItem) string { return t.ID }

func removeByID[T any](list []T, id string, key func(T) string) []T {
	out, _ := partition(list, func(v T) bool { return key(v) == id })
	return out
}

// partition splits list into the elements that do not match and those that do.
func partition[T any](list []T, match func(T) bool) (keep, matched []T) {
	keep = make([]T, 0, len(list))
	for _, v := range list {
		if match(v) {
			matched = append(matched, v)
		} else {
			keep = append(keep, v)
		}
	}
	return keep, matched
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
