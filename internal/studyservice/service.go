// Package studyservice owns the live application state. Every mutation goes
// through Dispatch, which applies a pure reducer and then persists the
// collections that changed.
package studyservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/editor"
	"github.com/starford/smartstudy/internal/kvstore"
	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/state"
	"github.com/starford/smartstudy/internal/transfer"
)

// Notifier receives change notifications, typically an SSE broker.
type Notifier interface {
	PublishStateChanged(keys []string)
	PublishStorageUpdated(u kvstore.Usage)
	PublishImportPending(token string, p transfer.Preview)
}

type nopNotifier struct{}

func (nopNotifier) PublishStateChanged([]string) {}
func (nopNotifier) PublishStorageUpdated(kvstore.Usage) {}
func (nopNotifier) PublishImportPending(string, transfer.Preview) {}

// Service coordinates the in-memory state, the store and editor sessions.
type Service struct {
	store      kvstore.Store
	logger     *slog.Logger
	notifier   Notifier
	device     editor.Device
	now        func() time.Time
	previewLen int

	mu       sync.RWMutex
	state    models.Collections
	version  uint64
	degraded bool

	// persistMu serializes writes; persisted records the state version last
	// written for each key so an older snapshot never replaces a newer one.
	// Keys in unloaded could not be read at Load and are never written.
	persistMu sync.Mutex
	persisted map[string]uint64
	unloaded  map[string]bool

	usageMu sync.RWMutex
	usage   kvstore.Usage

	importsMu sync.Mutex
	imports   map[string]PendingImport

	sessionsMu sync.Mutex
	sessions   map[string]*editor.Session
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithDevice sets the capture device shared by editor sessions.
func WithDevice(d editor.Device) Option {
	return func(s *Service) { s.device = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPreviewLength sets the preview length used in note listings.
func WithPreviewLength(n int) Option {
	return func(s *Service) { s.previewLen = n }
}

// New creates a service over store. Call Load before serving.
func New(store kvstore.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    slog.Default(),
		notifier:  nopNotifier{},
		now:       time.Now,
		persisted: make(map[string]uint64),
		imports:   make(map[string]PendingImport),
		sessions:  make(map[string]*editor.Session),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads every collection concurrently. A missing key falls back to the
// built-in sample data. A key that cannot be read falls back to sample data
// too, marks the service degraded and is never written back, so the stored
// value survives until a later Load reads it. Only context cancellation is
// returned as an error.
func (s *Service) Load(ctx context.Context) error {
	var c models.Collections
	sample := SampleData()
	slots := []struct {
		key      string
		dst      any
		fallback func()
	}{
		{kvstore.KeySubjects, &c.Subjects, func() { c.Subjects = sample.Subjects }},
		{kvstore.KeyTasks, &c.Tasks, func() { c.Tasks = sample.Tasks }},
		{kvstore.KeyNotes, &c.Notes, func() { c.Notes = sample.Notes }},
		{kvstore.KeyResources, &c.Resources, func() { c.Resources = sample.Resources }},
		{kvstore.KeyTrash, &c.Trash, func() { c.Trash = nil }},
	}
	found := make([]bool, len(slots))
	errs := make([]error, len(slots))

	var g errgroup.Group
	for i, slot := range slots {
		g.Go(func() error {
			found[i], errs[i] = s.store.Get(ctx, slot.key, slot.dst)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	unloaded := make(map[string]bool)
	for i, slot := range slots {
		switch {
		case errs[i] != nil:
			s.logger.Warn("state load failed, using sample data",
				slog.String("key", slot.key),
				slog.String("error", errs[i].Error()))
			unloaded[slot.key] = true
			slot.fallback()
		case !found[i]:
			slot.fallback()
		}
	}
	normalize(&c)
	degraded := len(unloaded) > 0

	s.mu.Lock()
	s.state = c
	s.degraded = degraded
	s.mu.Unlock()

	s.persistMu.Lock()
	s.unloaded = unloaded
	s.persistMu.Unlock()

	s.logger.Info("state loaded",
		slog.Int("subjects", len(c.Subjects)),
		slog.Int("tasks", len(c.Tasks)),
		slog.Int("notes", len(c.Notes)),
		slog.Int("resources", len(c.Resources)),
		slog.Int("trash", len(c.Trash)),
		slog.Bool("degraded", degraded))
	return nil
}

func normalize(c *models.Collections) {
	if c.Subjects == nil {
		c.Subjects = []models.Subject{}
	}
	if c.Tasks == nil {
		c.Tasks = []models.Task{}
	}
	if c.Notes == nil {
		c.Notes = []models.Note{}
	}
	if c.Resources == nil {
		c.Resources = []models.Resource{}
	}
	if c.Trash == nil {
		c.Trash = []models.TrashItem{}
	}
}

// Degraded reports whether the last load or write failed.
func (s *Service) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Snapshot returns the current collections. Callers must not modify the
// returned slices.
func (s *Service) Snapshot() models.Collections {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies a and persists the collections it changed. When
// persisting fails the new state stays applied in memory and the error
// wraps apperr.ErrStorage.
func (s *Service) Dispatch(ctx context.Context, a state.Action) (state.Result, error) {
	return s.dispatchIf(ctx, a, nil)
}

// dispatchIf is Dispatch with a precondition checked under the state lock.
func (s *Service) dispatchIf(ctx context.Context, a state.Action, check func(models.Collections) error) (state.Result, error) {
	s.mu.Lock()
	if check != nil {
		if err := check(s.state); err != nil {
			s.mu.Unlock()
			return state.Result{}, err
		}
	}
	res, err := state.Reduce(s.state, a, state.Env{Now: s.now()})
	if err != nil {
		s.mu.Unlock()
		return state.Result{}, err
	}
	if len(res.Keys) == 0 {
		s.mu.Unlock()
		return res, nil
	}
	normalize(&res.State)
	s.state = res.State
	s.version++
	version := s.version
	values := collectionValues(res.State, res.Keys)
	s.mu.Unlock()

	err = s.persist(ctx, version, values)
	s.notifier.PublishStateChanged(res.Keys)
	return res, err
}

func collectionValues(c models.Collections, keys state.Keys) map[string]any {
	values := make(map[string]any, len(keys))
	for _, k := range keys {
		switch k {
		case kvstore.KeySubjects:
			values[k] = c.Subjects
		case kvstore.KeyTasks:
			values[k] = c.Tasks
		case kvstore.KeyNotes:
			values[k] = c.Notes
		case kvstore.KeyResources:
			values[k] = c.Resources
		case kvstore.KeyTrash:
			values[k] = c.Trash
		}
	}
	return values
}

func (s *Service) persist(ctx context.Context, version uint64, values map[string]any) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	var skipped []string
	for k := range values {
		if s.unloaded[k] {
			skipped = append(skipped, k)
			delete(values, k)
			continue
		}
		if s.persisted[k] >= version {
			delete(values, k)
		}
	}
	var skipErr error
	if len(skipped) > 0 {
		slices.Sort(skipped)
		s.logger.Warn("not persisting keys that failed to load, changes kept in memory",
			slog.Any("keys", skipped))
		skipErr = fmt.Errorf("studyservice: persist: %v not loaded: %w", skipped, apperr.ErrStorage)
	}
	if len(values) == 0 {
		return skipErr
	}

	if err := kvstore.SetMany(ctx, s.store, values); err != nil {
		s.logger.Warn("persist failed, changes kept in memory",
			slog.Uint64("version", version),
			slog.String("error", err.Error()))
		s.mu.Lock()
		s.degraded = true
		s.mu.Unlock()
		return fmt.Errorf("studyservice: persist: %v: %w", err, apperr.ErrStorage)
	}
	for k := range values {
		s.persisted[k] = version
	}
	return skipErr
}

func isStorage(err error) bool {
	return errors.Is(err, apperr.ErrStorage)
}

// Close saves and closes every open editor session.
func (s *Service) Close(ctx context.Context) error {
	s.sessionsMu.Lock()
	sessions := make([]*editor.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*editor.Session)
	s.sessionsMu.Unlock()

	var errs []error
	for _, sess := range sessions {
		if err := sess.Close(ctx, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
