// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyExists     = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidBundle     = errors.New("invalid import bundle")
	ErrStorage           = errors.New("storage unavailable")
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)
