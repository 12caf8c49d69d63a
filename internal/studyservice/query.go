package studyservice

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/attachment"
	"github.com/starford/smartstudy/internal/checksum"
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/kvstore"
	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/state"
	"github.com/starford/smartstudy/internal/transfer"
)

// NoteListItem is a lightweight note in a list response.
type NoteListItem struct {
	ID           string `json:"id"`
	SubjectID    string `json:"subjectId"`
	Title        string `json:"title"`
	LastModified string `json:"lastModified"`
	Preview      string `json:"preview"`
	HasAudio     bool   `json:"hasAudio"`
	HasImages    bool   `json:"hasImages"`
	HasSummary   bool   `json:"hasSummary"`
	SizeLabel    string `json:"sizeLabel"`
	Checksum     string `json:"checksum"`
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	Document    document.Decoded   `json:"document"`
	Attachments attachment.Summary `json:"attachments"`
	Checksum    string             `json:"checksum"`
}

// Subjects returns live subjects. Archived ones are included on request.
func (s *Service) Subjects(includeArchived bool) []models.Subject {
	c := s.Snapshot()
	out := make([]models.Subject, 0, len(c.Subjects))
	for _, sub := range c.Subjects {
		if sub.IsArchived && !includeArchived {
			continue
		}
		out = append(out, sub)
	}
	return out
}

// Subject returns one live subject.
func (s *Service) Subject(id string) (models.Subject, error) {
	sub, ok := s.Snapshot().FindSubject(id)
	if !ok {
		return models.Subject{}, fmt.Errorf("subject %s: %w", id, apperr.ErrNotFound)
	}
	return sub, nil
}

// Tasks returns live tasks, optionally limited to one subject.
func (s *Service) Tasks(subjectID string) []models.Task {
	return filter(s.Snapshot().Tasks, func(t models.Task) bool {
		return subjectID == "" || t.SubjectID == subjectID
	})
}

// Resources returns live resources, optionally limited to one subject.
func (s *Service) Resources(subjectID string) []models.Resource {
	return filter(s.Snapshot().Resources, func(r models.Resource) bool {
		return subjectID == "" || r.SubjectID == subjectID
	})
}

// Notes lists live notes, optionally limited to one subject, most recently
// modified first.
func (s *Service) Notes(subjectID string) []NoteListItem {
	notes := filter(s.Snapshot().Notes, func(n models.Note) bool {
		return subjectID == "" || n.SubjectID == subjectID
	})
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].LastModified > notes[j].LastModified })

	items := make([]NoteListItem, len(notes))
	for i, n := range notes {
		sum := attachment.ExtractRaw(n.Content, s.previewLen)
		items[i] = NoteListItem{
			ID:           n.ID,
			SubjectID:    n.SubjectID,
			Title:        n.Title,
			LastModified: n.LastModified,
			Preview:      sum.Preview,
			HasAudio:     sum.HasAudio,
			HasImages:    sum.HasImages,
			HasSummary:   sum.HasSummary,
			SizeLabel:    sum.SizeLabel,
			Checksum:     checksum.Sum(n.Content),
		}
	}
	return items
}

// Note returns a decoded note with its attachment summary.
func (s *Service) Note(id string) (NoteDetail, error) {
	n, ok := s.Snapshot().FindNote(id)
	if !ok {
		return NoteDetail{}, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	d := document.Decode(n.Content)
	return NoteDetail{
		Note:        n,
		Document:    d,
		Attachments: attachment.Extract(d, s.previewLen),
		Checksum:    checksum.Sum(n.Content),
	}, nil
}

// PrintableNote returns the visible-only markup of a note.
func (s *Service) PrintableNote(id string) (models.Note, string, error) {
	n, ok := s.Snapshot().FindNote(id)
	if !ok {
		return models.Note{}, "", fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	return n, document.Clean(n.Content), nil
}

// SaveNote stores an editing state. A non-empty ifMatch must equal the
// checksum of the stored content.
func (s *Service) SaveNote(ctx context.Context, id, title string, d document.Decoded, ifMatch string) (NoteDetail, error) {
	_, err := s.dispatchIf(ctx, state.SaveNoteDocument{NoteID: id, Title: title, Document: d},
		func(c models.Collections) error {
			n, ok := c.FindNote(id)
			if !ok {
				return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
			}
			if !checksum.Match(ifMatch, n.Content) {
				return fmt.Errorf("note %s: %w", id, apperr.ErrConflict)
			}
			return nil
		})
	if err != nil && !isStorage(err) {
		return NoteDetail{}, err
	}
	detail, derr := s.Note(id)
	if derr != nil {
		return NoteDetail{}, derr
	}
	return detail, err
}

// Trash lists trash records, newest first.
func (s *Service) Trash() []models.TrashItem {
	items := append([]models.TrashItem{}, s.Snapshot().Trash...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].DeletedAt.After(items[j].DeletedAt) })
	return items
}

// Export builds a bundle of the selected data.
func (s *Service) Export(sel transfer.Selection) transfer.Bundle {
	return transfer.Export(s.Snapshot(), sel, s.now())
}

// SearchHit is a note matching a query.
type SearchHit struct {
	ID        string `json:"id"`
	SubjectID string `json:"subjectId"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

// SearchResult groups matches by type.
type SearchResult struct {
	Notes []SearchHit   `json:"notes"`
	Tasks []models.Task `json:"tasks"`
	Query string        `json:"query"`
}

// Search matches notes by title or text and tasks by title,
// case-insensitively. Hidden audio payloads are not searched.
func (s *Service) Search(query string, limit int) SearchResult {
	res := SearchResult{Notes: []SearchHit{}, Tasks: []models.Task{}, Query: query}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return res
	}
	if limit <= 0 {
		limit = 50
	}
	c := s.Snapshot()
	for _, n := range c.Notes {
		if len(res.Notes) >= limit {
			break
		}
		d := document.Decode(n.Content)
		text := attachment.PlainText(d.Visible)
		if strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(text), q) ||
			strings.Contains(strings.ToLower(attachment.PlainText(d.Summary)), q) {
			res.Notes = append(res.Notes, SearchHit{
				ID:        n.ID,
				SubjectID: n.SubjectID,
				Title:     n.Title,
				Snippet:   snippet(text, q, 80),
			})
		}
	}
	for _, t := range c.Tasks {
		if len(res.Tasks) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(t.Title), q) {
			res.Tasks = append(res.Tasks, t)
		}
	}
	return res
}

// snippet returns up to width runes of text around the first match of q.
func snippet(text, q string, width int) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	qr := []rune(q)
	at := -1
	for i := 0; i+len(qr) <= len(lower); i++ {
		if string(lower[i:i+len(qr)]) == q {
			at = i
			break
		}
	}
	if at < 0 {
		return attachment.Preview(text, width)
	}
	start := max(at-width/2, 0)
	end := min(start+width, len(runes))
	out := string(runes[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}

// StorageInfo reports storage usage and the approximate size of each
// collection.
type StorageInfo struct {
	Usage       int64          `json:"usage"`
	Quota       int64          `json:"quota"`
	Degraded    bool           `json:"degraded"`
	Collections map[string]int `json:"collections"`
	TotalLabel  string         `json:"totalLabel"`
}

// Storage reports the latest usage estimate and collection sizes.
func (s *Service) Storage(ctx context.Context) StorageInfo {
	u := s.Usage(ctx)
	c := s.Snapshot()
	info := StorageInfo{
		Usage:       u.Usage,
		Quota:       u.Quota,
		Degraded:    s.Degraded(),
		Collections: make(map[string]int, 5),
	}
	total := 0
	for k, v := range collectionValues(c, state.Keys{kvstore.KeySubjects, kvstore.KeyTasks, kvstore.KeyNotes, kvstore.KeyResources, kvstore.KeyTrash}) {
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		info.Collections[k] = len(data)
		total += len(data)
	}
	info.TotalLabel = attachment.SizeLabel(total)
	return info
}

func filter[T any](list []T, keep func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
