package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/smartstudy/internal/editor"
	"github.com/starford/smartstudy/internal/kvstore"
	"github.com/starford/smartstudy/internal/storage"
	"github.com/starford/smartstudy/internal/studyservice"
)

// NewLogger builds the structured JSON logger used by every command.
func NewLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Services holds the components shared by the server and the CLI commands.
type Services struct {
	Store kvstore.Store
	Files *storage.FS
	Study *studyservice.Service

	closeStore func() error
}

// OpenServices opens the configured store and files directory and loads the
// study state. Extra options are applied after the configured ones.
func OpenServices(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...studyservice.Option) (*Services, error) {
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Files.Path, 0o755); err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("create files dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Files.Path)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("init files storage: %w", err)
	}

	base := []studyservice.Option{
		studyservice.WithLogger(logger),
		studyservice.WithDevice(editor.NewChunkDevice(cfg.Editor.RecordingMIMEType, cfg.Editor.RecordingMaxBytes)),
		studyservice.WithPreviewLength(cfg.Editor.PreviewLength),
	}
	svc := studyservice.New(store, append(base, opts...)...)
	if err := svc.Load(ctx); err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("load state: %w", err)
	}
	if svc.Degraded() {
		logger.Warn("store unavailable, running on sample data")
	}

	return &Services{Store: store, Files: files, Study: svc, closeStore: closeStore}, nil
}

// Close saves open editor sessions and closes the store.
func (s *Services) Close(ctx context.Context) error {
	sessErr := s.Study.Close(ctx)
	if err := s.closeStore(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return sessErr
}

func openStore(ctx context.Context, cfg StoreConfig) (kvstore.Store, func() error, error) {
	switch cfg.Driver {
	case StoreDriverMemory:
		return kvstore.NewMemory(), func() error { return nil }, nil
	default:
		db, err := kvstore.Open(ctx, cfg.Path, cfg.QuotaBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("init store: %w", err)
		}
		return db, db.Close, nil
	}
}
