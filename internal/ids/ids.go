// Package ids generates entity identifiers.
package ids

import "github.com/google/uuid"

// New returns a time-ordered identifier with a random suffix (UUIDv7).
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
