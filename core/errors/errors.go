// Package errors provides the typed error taxonomy shared by the LevelSheet
// pipeline. Every error defined here is fatal for a run; expected lookup
// misses are not errors and never surface through this package.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrSourceFormat indicates a source record of unexpected shape
	ErrSourceFormat = errors.New("unexpected source format")
	// ErrConflict indicates two inputs that should agree do not
	ErrConflict = errors.New("conflicting data")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "page", "feed", "ordering table")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// SourceFormatError reports a record whose shape does not match what the
// source adapter or catalog builder expects. A malformed record aborts the
// whole run; nothing is skipped.
type SourceFormatError struct {
	Source  string // Source kind or path (e.g., "markup", "feed", "data/pop.html")
	Record  string // Record identifier, usually the song title
	Field   string // Field that was missing or malformed, if known
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *SourceFormatError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Record != "" {
		return fmt.Sprintf("malformed %s record %q: %s", e.Source, e.Record, msg)
	}
	return fmt.Sprintf("malformed %s: %s", e.Source, msg)
}

func (e *SourceFormatError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSourceFormat
}

// Is reports a match against ErrSourceFormat even when an underlying error
// is attached.
func (e *SourceFormatError) Is(target error) bool {
	return target == ErrSourceFormat
}

// ConflictError reports two inputs that claim the same identity but disagree
// on a field that must match.
type ConflictError struct {
	Key    string // Identity both inputs share
	Field  string // Field that differs
	First  string // Value already recorded
	Second string // Value that was rejected
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting %s for %s: %q vs %q", e.Field, e.Key, e.First, e.Second)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewSourceFormat creates a SourceFormatError
func NewSourceFormat(source, record, field, message string) *SourceFormatError {
	return &SourceFormatError{
		Source:  source,
		Record:  record,
		Field:   field,
		Message: message,
	}
}

// NewConflict creates a ConflictError
func NewConflict(key, field, first, second string) *ConflictError {
	return &ConflictError{
		Key:    key,
		Field:  field,
		First:  first,
		Second: second,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
