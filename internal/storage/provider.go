// Package storage stores binary payloads (uploaded files, export bundles and
// inbox files) on the local file system.
package storage

import (
	"io"
	"time"
)

// FileInfo describes a stored file.
type FileInfo struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is the interface for file operations. Paths are relative to the
// provider root and slash-separated. Missing files are reported as
// apperr.ErrNotFound.
type Provider interface {
	// List returns every file under dir whose path relative to the root
	// matches the doublestar pattern. Dot-directories and temp files are
	// skipped.
	List(dir, pattern string) ([]FileInfo, error)
	// Stat describes the file at path.
	Stat(path string) (FileInfo, error)
	// Open returns a seekable reader for streaming the file at path.
	Open(path string) (io.ReadSeekCloser, FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, replacing any existing file.
	Write(path string, content []byte) error
	// Create is Write that fails with apperr.ErrAlreadyExists instead of
	// replacing a file.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
