// Package upload vets files before they are stored as File resources. The
// REST upload and the MCP upload_file tool both go through Check, so a file
// accepted by one is accepted by the other.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/smartstudy/internal/apperr"
)

// MaxSize is the largest accepted payload.
const MaxSize = 20 << 20

// ErrTooLarge is returned for payloads over MaxSize.
var ErrTooLarge = errors.New("file too large")

// Format is an accepted file type.
type Format struct {
	Ext  string
	MIME string

	// sniffed lists what http.DetectContentType reports for valid content.
	// Empty means the content is checked by a custom rule.
	sniffed []string
}

var formats = []Format{
	{Ext: ".png", MIME: "image/png", sniffed: []string{"image/png"}},
	{Ext: ".jpg", MIME: "image/jpeg", sniffed: []string{"image/jpeg"}},
	{Ext: ".jpeg", MIME: "image/jpeg", sniffed: []string{"image/jpeg"}},
	{Ext: ".gif", MIME: "image/gif", sniffed: []string{"image/gif"}},
	{Ext: ".webp", MIME: "image/webp", sniffed: []string{"image/webp"}},
	{Ext: ".svg", MIME: "image/svg+xml"},
	{Ext: ".pdf", MIME: "application/pdf", sniffed: []string{"application/pdf"}},
	{Ext: ".mp3", MIME: "audio/mpeg", sniffed: []string{"audio/mpeg"}},
	{Ext: ".wav", MIME: "audio/wave", sniffed: []string{"audio/wave"}},
	{Ext: ".webm", MIME: "audio/webm", sniffed: []string{"video/webm"}},
	{Ext: ".ogg", MIME: "audio/ogg", sniffed: []string{"application/ogg", "audio/ogg"}},
	{Ext: ".docx", MIME: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", sniffed: []string{"application/zip"}},
	{Ext: ".pptx", MIME: "application/vnd.openxmlformats-officedocument.presentationml.presentation", sniffed: []string{"application/zip"}},
	{Ext: ".txt", MIME: "text/plain", sniffed: []string{"text/plain"}},
	{Ext: ".md", MIME: "text/markdown", sniffed: []string{"text/plain"}},
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Lookup returns the format for a file extension, with or without the dot.
func Lookup(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, f := range formats {
		if f.Ext == ext {
			return f, true
		}
	}
	return Format{}, false
}

// ExtForMIME maps a MIME type (parameters allowed) to an accepted extension,
// or "" if none.
func ExtForMIME(mime string) string {
	mime = strings.TrimSpace(strings.Split(mime, ";")[0])
	for _, f := range formats {
		if f.MIME == mime {
			return f.Ext
		}
	}
	return ""
}

// Allowed lists the accepted extensions for error messages.
func Allowed() string {
	exts := make([]string, len(formats))
	for i, f := range formats {
		exts[i] = strings.TrimPrefix(f.Ext, ".")
	}
	return strings.Join(exts, ", ")
}

// CleanName reduces a client-supplied name to a safe base name: directories
// are dropped, characters outside [a-zA-Z0-9._-] become "_" and leading
// dots are removed. A name with nothing left gets a random one with ext.
func CleanName(name, ext string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = uuid.NewString() + ext
	}
	return name
}

// Check validates a file about to be stored under name: size, extension
// and content must agree. Rejections wrap apperr.ErrValidation, or
// ErrTooLarge for oversized payloads.
func Check(name string, data []byte) (Format, error) {
	if len(data) > MaxSize {
		return Format{}, fmt.Errorf("upload: %d bytes (max %d): %w", len(data), MaxSize, ErrTooLarge)
	}
	if len(data) == 0 {
		return Format{}, fmt.Errorf("upload: empty file: %w", apperr.ErrValidation)
	}
	ext := filepath.Ext(name)
	f, ok := Lookup(ext)
	if !ok {
		return Format{}, fmt.Errorf("upload: unsupported file extension %q (allowed: %s): %w", ext, Allowed(), apperr.ErrValidation)
	}
	if err := f.matches(data); err != nil {
		return Format{}, fmt.Errorf("upload: %v: %w", err, apperr.ErrValidation)
	}
	return f, nil
}

func (f Format) matches(data []byte) error {
	if f.Ext == ".svg" {
		head := data[:min(len(data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("content is not SVG (missing <svg tag)")
		}
		return nil
	}
	detected := http.DetectContentType(data)
	base := strings.Split(detected, ";")[0]
	for _, s := range f.sniffed {
		if s == base {
			return nil
		}
	}
	return fmt.Errorf("content does not match extension %s (detected: %s)", f.Ext, detected)
}
