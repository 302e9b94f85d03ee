package bundler

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	// ErrUnsupportedType is returned when a reference has to be emitted for a
	// bundle type that has no output form.
	ErrUnsupportedType = errors.New("unsupported bundle type")

	// ErrUnknownMinifier is returned by Registry.Lookup when no strategy is
	// registered under the requested name.
	ErrUnknownMinifier = errors.New("unknown minifier")

	// ErrNoManifest is returned when a bundle has no recorded manifest.
	ErrNoManifest = errors.New("no manifest for bundle")
)

// StorageError reports a failed read or write against persistent storage.
// These failures are fatal for the bundle being built and are never retried.
type StorageError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func readError(path string, err error) error {
	return &StorageError{Op: "read", Path: path, Err: err}
}

func writeError(path string, err error) error {
	return &StorageError{Op: "write", Path: path, Err: err}
}

// ValidationError represents one or more validation errors that occurred
// while checking a configuration or a definitions file.
type ValidationError struct {
	Errors []error
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", ve.Errors[0])
	}

	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(ve.Errors)))
	for i, err := range ve.Errors {
		fmt.Fprintf(&buf, "  %d. %v\n", i+1, err)
	}
	return buf.String()
}

// Unwrap returns the underlying errors for use with errors.Is and errors.As.
func (ve *ValidationError) Unwrap() []error {
	return ve.Errors
}

// newValidationError creates a ValidationError from a slice of errors.
// Returns nil if the slice is empty.
func newValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
