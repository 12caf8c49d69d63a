package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/starford/smartstudy/internal/apperr"
)

const tmpPrefix = ".smartstudy-tmp-"

// FS implements Provider on a directory.
type FS struct {
	root string // absolute
}

// NewFS returns an FS rooted at root, which must be an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// resolve maps a root-relative path to an absolute one and rejects paths
// that leave the root.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// resolveFile is resolve for operations that need a file, not the root.
func (f *FS) resolveFile(rel string) (string, error) {
	abs, err := f.resolve(rel)
	if err != nil {
		return "", err
	}
	if abs == f.root {
		return "", fmt.Errorf("storage: empty path")
	}
	return abs, nil
}

func notFound(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s %s: %w", op, path, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s %s: %w", op, path, err)
}

func (f *FS) info(abs string, fi fs.FileInfo) FileInfo {
	rel, _ := filepath.Rel(f.root, abs)
	return FileInfo{Path: filepath.ToSlash(rel), Size: fi.Size(), UpdatedAt: fi.ModTime()}
}

// List walks dir and returns every file whose root-relative path matches
// pattern. An empty pattern matches everything.
func (f *FS) List(dir, pattern string) ([]FileInfo, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("storage: invalid pattern %q", pattern)
	}
	var out []FileInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		info := f.info(p, fi)
		if ok, _ := doublestar.Match(pattern, info.Path); ok {
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, notFound("list", dir, err)
	}
	return out, nil
}

// Stat describes a stored file.
func (f *FS) Stat(path string) (FileInfo, error) {
	abs, err := f.resolveFile(path)
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return FileInfo{}, notFound("stat", path, err)
	}
	if fi.IsDir() {
		return FileInfo{}, fmt.Errorf("storage: stat %s: %w", path, apperr.ErrNotFound)
	}
	return f.info(abs, fi), nil
}

// Open opens a stored file for reading. The caller closes it.
func (f *FS) Open(path string) (io.ReadSeekCloser, FileInfo, error) {
	abs, err := f.resolveFile(path)
	if err != nil {
		return nil, FileInfo{}, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, FileInfo{}, notFound("open", path, err)
	}
	fi, err := file.Stat()
	if err != nil || fi.IsDir() {
		_ = file.Close()
		return nil, FileInfo{}, fmt.Errorf("storage: open %s: %w", path, apperr.ErrNotFound)
	}
	return file, f.info(abs, fi), nil
}

// Read returns the raw bytes of a stored file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolveFile(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, notFound("read", path, err)
	}
	return data, nil
}

// Write atomically replaces path with content.
func (f *FS) Write(path string, content []byte) error {
	return f.write(path, content, os.Rename)
}

// Create writes content to path unless a file is already there. The temp
// file is hard-linked into place, which fails instead of replacing.
func (f *FS) Create(path string, content []byte) error {
	return f.write(path, content, func(tmp, abs string) error {
		if err := os.Link(tmp, abs); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%s: %w", path, apperr.ErrAlreadyExists)
			}
			return err
		}
		return os.Remove(tmp)
	})
}

// write stages content in a synced temp file next to the target and hands
// it to place.
func (f *FS) write(path string, content []byte, place func(tmp, abs string) error) error {
	abs, err := f.resolveFile(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := place(tmpName, abs); err != nil {
		return fmt.Errorf("storage: place %s: %w", path, err)
	}
	return nil
}

// Delete removes a stored file.
func (f *FS) Delete(path string) error {
	abs, err := f.resolveFile(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return notFound("delete", path, err)
	}
	return nil
}

// Move renames a file within the root, creating parent directories.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.resolveFile(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.resolveFile(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return notFound("move", oldPath, err)
	}
	return nil
}

var _ Provider = (*FS)(nil)
