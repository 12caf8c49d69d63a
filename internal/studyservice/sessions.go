package studyservice

import (
	"context"
	"fmt"
	"sort"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/editor"
	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/state"
)

// OpenSession starts editing a note.
func (s *Service) OpenSession(noteID string) (*editor.Session, error) {
	n, ok := s.Snapshot().FindNote(noteID)
	if !ok {
		return nil, fmt.Errorf("note %s: %w", noteID, apperr.ErrNotFound)
	}
	sess := editor.Open(n, sessionSaver{s}, editor.WithDevice(s.device), editor.WithClock(s.now))

	s.sessionsMu.Lock()
	s.sessions[sess.ID()] = sess
	s.sessionsMu.Unlock()
	return sess, nil
}

// Session returns an open session.
func (s *Service) Session(id string) (*editor.Session, error) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return sess, nil
}

// Sessions lists open sessions by note title.
func (s *Service) Sessions() []editor.View {
	s.sessionsMu.Lock()
	views := make([]editor.View, 0, len(s.sessions))
	for _, sess := range s.sessions {
		views = append(views, sess.View())
	}
	s.sessionsMu.Unlock()
	sort.Slice(views, func(i, j int) bool { return views[i].Title < views[j].Title })
	return views
}

// CloseSession closes and forgets a session. A failed save keeps it open.
func (s *Service) CloseSession(ctx context.Context, id string, discard bool) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	if err := sess.Close(ctx, discard); err != nil {
		return err
	}
	s.sessionsMu.Lock()
	delete(s.sessions, id)
	s.sessionsMu.Unlock()
	return nil
}

// sessionSaver routes editor output through Dispatch.
type sessionSaver struct{ s *Service }

func (ss sessionSaver) SaveDocument(ctx context.Context, noteID, title string, d document.Decoded) error {
	_, err := ss.s.Dispatch(ctx, state.SaveNoteDocument{NoteID: noteID, Title: title, Document: d})
	return err
}

func (ss sessionSaver) SaveResource(ctx context.Context, r models.Resource) error {
	_, err := ss.s.Dispatch(ctx, state.PutResource{Resource: r})
	return err
}

func (ss sessionSaver) DiscardResource(ctx context.Context, id string) error {
	r, ok := ss.s.Snapshot().FindResource(id)
	if !ok || r.Type != models.ResourceAudio {
		return nil
	}
	_, err := ss.s.Dispatch(ctx, state.SoftDelete{Kind: models.KindResource, ID: id})
	return err
}
