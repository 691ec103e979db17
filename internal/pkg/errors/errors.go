package errors

import "errors"

var (
	// ErrInvalidInput is a generic sentinel for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is a generic sentinel for missing or expired resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals an operation raced with in-flight work on the same resource.
	ErrConflict = errors.New("conflict")
	// ErrNotReady signals a terminal operation was requested before all prerequisites completed.
	ErrNotReady = errors.New("not ready")
)
