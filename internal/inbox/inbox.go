// Package inbox watches a directory for export bundles dropped by the user
// and stages them as pending imports. Nothing is committed automatically.
package inbox

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/starford/smartstudy/internal/storage"
	"github.com/starford/smartstudy/internal/transfer"
)

// Handled files are moved under these root-level directories.
const (
	ProcessedDir = ".processed"
	RejectedDir  = ".rejected"
)

// DefaultPattern matches bundle files anywhere below the inbox root.
const DefaultPattern = "**/*.json"

const debounce = 200 * time.Millisecond

// StageFunc receives each valid bundle with its root-relative path.
type StageFunc func(b transfer.Bundle, source string)

// Scan stages every matching file currently in the inbox and returns how
// many bundles were staged.
func Scan(store storage.Provider, pattern string, logger *slog.Logger, stage StageFunc) int {
	if pattern == "" {
		pattern = DefaultPattern
	}
	files, err := store.List("", pattern)
	if err != nil {
		logger.Warn("inbox: list failed", slog.String("error", err.Error()))
		return 0
	}
	n := 0
	for _, f := range files {
		if process(store, f.Path, logger, stage) {
			n++
		}
	}
	return n
}

// Watch scans the inbox once, then stages matching files as they are
// created or written, until ctx is cancelled.
func Watch(ctx context.Context, store storage.Provider, root, pattern string, logger *slog.Logger, stage StageFunc) error {
	if pattern == "" {
		pattern = DefaultPattern
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("inbox: started", slog.String("root", root), slog.String("pattern", pattern))

	if n := Scan(store, pattern, logger, stage); n > 0 {
		logger.Info("inbox: staged existing bundles", slog.Int("count", n))
	}

	// Writers emit several events per file; a path is handled once it has
	// been quiet for the debounce interval.
	pending := make(map[string]time.Time)
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	schedule := func(d time.Duration) {
		if timer == nil {
			timer = time.NewTimer(d)
			timerCh = timer.C
			return
		}
		timer.Reset(d)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("inbox: stopped")
			return nil

		case <-timerCh:
			now := time.Now()
			var next time.Duration
			for rel, at := range pending {
				if wait := debounce - now.Sub(at); wait > 0 {
					if next == 0 || wait < next {
						next = wait
					}
					continue
				}
				delete(pending, rel)
				process(store, rel, logger, stage)
			}
			if next > 0 {
				schedule(next)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || hidden(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("inbox: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					}
					// Files copied in together with the directory produce no
					// events of their own.
					files, listErr := store.List(rel, pattern)
					if listErr != nil {
						logger.Warn("inbox: list new dir failed",
							slog.String("path", rel),
							slog.String("error", listErr.Error()))
					}
					for _, f := range files {
						pending[f.Path] = time.Now()
					}
					if len(files) > 0 {
						schedule(debounce)
					}
					continue
				}
			}

			rel = filepath.ToSlash(rel)
			if ok, _ := doublestar.Match(pattern, rel); !ok {
				continue
			}
			pending[rel] = time.Now()
			schedule(debounce)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// process stages one file and moves it out of the way. It reports whether a
// bundle was staged.
func process(store storage.Provider, rel string, logger *slog.Logger, stage StageFunc) bool {
	data, err := store.Read(rel)
	if err != nil {
		// Already moved or deleted.
		logger.Debug("inbox: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	b, err := transfer.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Warn("inbox: rejected file", slog.String("path", rel), slog.String("error", err.Error()))
		moveAside(store, rel, RejectedDir, logger)
		return false
	}
	stage(b, rel)
	logger.Info("inbox: bundle staged", slog.String("path", rel))
	moveAside(store, rel, ProcessedDir, logger)
	return true
}

func moveAside(store storage.Provider, rel, dir string, logger *slog.Logger) {
	if err := store.Move(rel, path.Join(dir, rel)); err != nil {
		logger.Warn("inbox: move failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
