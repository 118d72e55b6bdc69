package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation on write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput indicates a request that failed business validation.
	ErrInvalidInput = errors.New("invalid input")
)
