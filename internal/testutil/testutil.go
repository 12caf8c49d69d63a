// Package testutil provides shared test helpers for setting up stores,
// file directories and a loaded service.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/starford/smartstudy/internal/kvstore"
	"github.com/starford/smartstudy/internal/storage"
	"github.com/starford/smartstudy/internal/studyservice"
)

// TestStore opens a temporary SQLite store that is automatically closed.
func TestStore(t *testing.T) *kvstore.SQLite {
	t.Helper()
	s, err := kvstore.Open(context.Background(), filepath.Join(t.TempDir(), "smartstudy.db"), 5<<20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestFiles creates a temporary files directory with a storage.Provider.
func TestFiles(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}

// TestService creates a service over a temporary SQLite store, loaded with
// the sample data. Open sessions are closed at cleanup.
func TestService(t *testing.T, opts ...studyservice.Option) *studyservice.Service {
	t.Helper()
	svc := studyservice.New(TestStore(t), opts...)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}
