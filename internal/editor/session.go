// Package editor implements a note editing session: the in-memory decoded
// document, its dirty tracking, and the audio capture lifecycle.
package editor

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/attachment"
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/ids"
	"github.com/starford/smartstudy/internal/models"
)

// Saver persists what a session produces.
type Saver interface {
	// SaveDocument encodes d into the note and stores it.
	SaveDocument(ctx context.Context, noteID, title string, d document.Decoded) error
	// SaveResource stores the Resource mirroring a recording.
	SaveResource(ctx context.Context, r models.Resource) error
	// DiscardResource trashes the mirror of a removed recording, if live.
	DiscardResource(ctx context.Context, id string) error
}

// View is a point-in-time copy of a session.
type View struct {
	ID        string           `json:"id"`
	NoteID    string           `json:"noteId"`
	SubjectID string           `json:"subjectId"`
	Title     string           `json:"title"`
	Document  document.Decoded `json:"document"`
	Dirty     bool             `json:"dirty"`
	Minimized bool             `json:"minimized"`
	Recording bool             `json:"recording"`
}

// Session edits one note.
type Session struct {
	id        string
	noteID    string
	subjectID string
	saver     Saver
	device    Device
	now       func() time.Time

	mu        sync.Mutex
	title     string
	doc       document.Decoded
	dirty     bool
	minimized bool
	closed    bool
	stream    Stream
}

// Option configures a Session.
type Option func(*Session)

// WithDevice sets the capture device used for recordings.
func WithDevice(d Device) Option {
	return func(s *Session) { s.device = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Open starts a session over note n.
func Open(n models.Note, saver Saver, opts ...Option) *Session {
	s := &Session{
		id:        ids.New(),
		noteID:    n.ID,
		subjectID: n.SubjectID,
		saver:     saver,
		now:       time.Now,
		title:     n.Title,
		doc:       document.Decode(n.Content),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// NoteID returns the id of the note being edited.
func (s *Session) NoteID() string { return s.noteID }

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.Audios = append([]models.AudioAttachment{}, s.doc.Audios...)
	return View{
		ID:        s.id,
		NoteID:    s.noteID,
		SubjectID: s.subjectID,
		Title:     s.title,
		Document:  doc,
		Dirty:     s.dirty,
		Minimized: s.minimized,
		Recording: s.stream != nil,
	}
}

func (s *Session) edit(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("editor: session %s closed: %w", s.id, apperr.ErrConflict)
	}
	fn()
	s.dirty = true
	return nil
}

// SetContent replaces the visible content.
func (s *Session) SetContent(visible string) error {
	return s.edit(func() { s.doc.Visible = visible })
}

// SetTitle renames the note.
func (s *Session) SetTitle(title string) error {
	return s.edit(func() { s.title = title })
}

// SetSummary replaces the hidden summary.
func (s *Session) SetSummary(summary string) error {
	return s.edit(func() { s.doc.Summary = summary })
}

// AddAudio appends an attachment as-is.
func (s *Session) AddAudio(a models.AudioAttachment) error {
	return s.edit(func() { s.doc.Audios = append(s.doc.Audios, a) })
}

// RemoveAudio drops an attachment and asks the saver to discard its mirrored
// resource.
func (s *Session) RemoveAudio(ctx context.Context, id string) error {
	var (
		resID string
		found bool
	)
	err := s.edit(func() {
		s.doc, resID, found = attachment.RemoveAudio(s.doc, id)
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("editor: audio %s: %w", id, apperr.ErrNotFound)
	}
	if err := s.saver.DiscardResource(ctx, resID); err != nil {
		return fmt.Errorf("editor: discard resource %s: %w", resID, err)
	}
	return nil
}

// StartRecording acquires the capture device.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("editor: session %s closed: %w", s.id, apperr.ErrConflict)
	}
	if s.stream != nil {
		return fmt.Errorf("editor: already recording: %w", apperr.ErrConflict)
	}
	if s.device == nil {
		return fmt.Errorf("editor: no capture device: %w", apperr.ErrDeviceUnavailable)
	}
	st, err := s.device.Start(ctx)
	if err != nil {
		return fmt.Errorf("editor: start recording: %v: %w", err, apperr.ErrDeviceUnavailable)
	}
	s.stream = st
	return nil
}

// WriteRecording feeds a chunk to the open stream when it accepts writes.
func (s *Session) WriteRecording(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return fmt.Errorf("editor: not recording: %w", apperr.ErrConflict)
	}
	w, ok := s.stream.(io.Writer)
	if !ok {
		return fmt.Errorf("editor: stream does not accept data: %w", apperr.ErrValidation)
	}
	if _, err := w.Write(p); err != nil {
		return fmt.Errorf("editor: write recording: %w", err)
	}
	return nil
}

// StopRecording ends the capture, attaches it to the note and stores its
// mirrored Audio resource. An empty name gets a timestamped default.
func (s *Session) StopRecording(ctx context.Context, name string) (models.AudioAttachment, error) {
	s.mu.Lock()
	a, r, err := s.finishRecordingLocked(name)
	s.mu.Unlock()
	if err != nil {
		return models.AudioAttachment{}, err
	}
	if err := s.saver.SaveResource(ctx, r); err != nil {
		return a, fmt.Errorf("editor: save recording resource: %w", err)
	}
	return a, nil
}

// finishRecordingLocked stops the stream, which releases the device on every
// path, and appends the attachment.
func (s *Session) finishRecordingLocked(name string) (models.AudioAttachment, models.Resource, error) {
	if s.stream == nil {
		return models.AudioAttachment{}, models.Resource{}, fmt.Errorf("editor: not recording: %w", apperr.ErrConflict)
	}
	st := s.stream
	s.stream = nil
	rec, err := st.Stop()
	if err != nil {
		return models.AudioAttachment{}, models.Resource{}, fmt.Errorf("editor: stop recording: %v: %w", err, apperr.ErrDeviceUnavailable)
	}
	if len(rec.Data) == 0 {
		return models.AudioAttachment{}, models.Resource{}, fmt.Errorf("editor: empty recording: %w", apperr.ErrValidation)
	}
	a, r := s.attachLocked(name, rec)
	return a, r, nil
}

// AttachRecording attaches audio captured elsewhere, with the same resource
// mirroring as StopRecording.
func (s *Session) AttachRecording(ctx context.Context, name string, rec Recording) (models.AudioAttachment, error) {
	if len(rec.Data) == 0 {
		return models.AudioAttachment{}, fmt.Errorf("editor: empty recording: %w", apperr.ErrValidation)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.AudioAttachment{}, fmt.Errorf("editor: session %s closed: %w", s.id, apperr.ErrConflict)
	}
	a, r := s.attachLocked(name, rec)
	s.mu.Unlock()
	if err := s.saver.SaveResource(ctx, r); err != nil {
		return a, fmt.Errorf("editor: save recording resource: %w", err)
	}
	return a, nil
}

func (s *Session) attachLocked(name string, rec Recording) (models.AudioAttachment, models.Resource) {
	now := s.now()
	if name == "" {
		name = "Recording " + now.Format("2006-01-02 15:04")
	}
	mime := rec.MIMEType
	if mime == "" {
		mime = "audio/webm"
	}
	a := models.AudioAttachment{
		ID:        ids.New(),
		URL:       "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(rec.Data),
		Name:      name,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	r := models.Resource{
		ID:        models.AudioResourcePrefix + a.ID,
		SubjectID: s.subjectID,
		Title:     name,
		Type:      models.ResourceAudio,
		URL:       a.URL,
	}
	a.LinkedResourceID = r.ID
	s.doc.Audios = append(s.doc.Audios, a)
	s.dirty = true
	return a, r
}

// CancelRecording releases the device without attaching anything.
func (s *Session) CancelRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.stream != nil {
		s.stream.Cancel()
		s.stream = nil
	}
}

// Save persists the document if it changed since the last save.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	if err := s.saver.SaveDocument(ctx, s.noteID, s.title, s.doc); err != nil {
		return fmt.Errorf("editor: save note %s: %w", s.noteID, err)
	}
	s.dirty = false
	return nil
}

// Minimize keeps the recording if one is running, persists the document and
// marks the session minimized.
func (s *Session) Minimize(ctx context.Context) error {
	s.mu.Lock()
	var mirror *models.Resource
	if s.stream != nil {
		_, r, err := s.finishRecordingLocked("")
		if err == nil {
			mirror = &r
		}
	}
	err := s.saveLocked(ctx)
	if err == nil {
		s.minimized = true
	}
	s.mu.Unlock()

	if mirror != nil {
		if rerr := s.saver.SaveResource(ctx, *mirror); rerr != nil && err == nil {
			err = fmt.Errorf("editor: save recording resource: %w", rerr)
		}
	}
	return err
}

// Resume clears the minimized flag.
func (s *Session) Resume() {
	s.mu.Lock()
	s.minimized = false
	s.mu.Unlock()
}

// Close ends the session. Unsaved edits are saved first unless discard is
// set; when that save fails the session stays open. The capture device is
// released in every case.
func (s *Session) Close(ctx context.Context, discard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	if s.closed {
		return nil
	}
	if !discard {
		if err := s.saveLocked(ctx); err != nil {
			return err
		}
	}
	s.closed = true
	return nil
}

// Closed reports whether Close completed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
