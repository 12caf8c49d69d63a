// Package kvstore provides the persistent key-value store every other
// component is built on. Values are JSON-encoded.
package kvstore

import "context"

// Persisted collection and preference keys.
const (
	KeySubjects         = "subjects"
	KeyTasks            = "tasks"
	KeyNotes            = "notes"
	KeyResources        = "resources"
	KeyTrash            = "trash"
	KeyTheme            = "theme"
	KeyLanguage         = "language"
	KeySidebarCollapsed = "sidebarCollapsed"
)

// Usage is a best-effort storage estimate in bytes.
type Usage struct {
	Usage int64 `json:"usage"`
	Quota int64 `json:"quota"`
}

// Store is an async, fallible key-value store. Writes to a single key are
// applied serially.
type Store interface {
	// Get decodes the value stored under key into dst. found is false when
	// the key is absent.
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key.
	Clear(ctx context.Context) error
	// UsageEstimate reports storage usage; it never fails and returns a zero
	// Usage when the backend cannot tell.
	UsageEstimate(ctx context.Context) Usage
	// Close releases the backend.
	Close() error
}

// Batch is implemented by stores that can write several keys atomically.
type Batch interface {
	SetMany(ctx context.Context, values map[string]any) error
}

// SetMany writes values atomically when s supports it, otherwise key by key.
func SetMany(ctx context.Context, s Store, values map[string]any) error {
	if b, ok := s.(Batch); ok {
		return b.SetMany(ctx, values)
	}
	for k, v := range values {
		if err := s.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
