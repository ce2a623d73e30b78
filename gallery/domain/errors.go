package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a picture, category, or stored file does not
// exist. Handlers map it to a 404.
var ErrNotFound = errors.New("not found")

// ErrInvalid is the sentinel wrapped by every ValidationError, so callers
// can match the whole class with errors.Is.
var ErrInvalid = errors.New("invalid input")

// ValidationError describes rejected input: oversized uploads, undecodable
// files, missing fields. Handlers map it to a 400 and re-render the form.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Invalidf builds a ValidationError from a format string.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps a filesystem failure in the image store. Handlers map
// it to a 500; there is no automatic retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
