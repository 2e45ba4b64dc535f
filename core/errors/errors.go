// Package errors provides standardized error types and helpers for the
// osisingest codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
	// ErrStructural indicates a document whose top-level shape is unrecognizable
	ErrStructural = errors.New("unrecognized document structure")
	// ErrStrict indicates a conversion that completed with diagnostics under a strict policy
	ErrStrict = errors.New("strict mode: diagnostics recorded")
)

// StructuralError is the only condition under which a document's conversion
// is abandoned. Other documents in the same run are unaffected.
type StructuralError struct {
	Document string // Document identifier, if known
	Tag      string // Offending element tag
	Message  string // What was expected
}

func (e *StructuralError) Error() string {
	if e.Document != "" {
		return fmt.Sprintf("structural error in %s: %s (got <%s>)", e.Document, e.Message, e.Tag)
	}
	return fmt.Sprintf("structural error: %s (got <%s>)", e.Message, e.Tag)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

// StrictError is returned alongside a complete result when the caller asked
// for strict conversion and diagnostics were recorded.
type StrictError struct {
	Document    string
	Diagnostics int
}

func (e *StrictError) Error() string {
	return fmt.Sprintf("%s: %d diagnostic(s) recorded", e.Document, e.Diagnostics)
}

func (e *StrictError) Unwrap() error {
	return ErrStrict
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

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "XML", "YAML")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// NewStructural creates a StructuralError
func NewStructural(document, tag, message string) *StructuralError {
	return &StructuralError{
		Document: document,
		Tag:      tag,
		Message:  message,
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

// NewParse creates a ParseError wrapping err.
func NewParse(format, path string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: err.Error(),
		Err:     err,
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

// New returns an error with the given text, for package-level sentinels.
func New(text string) error {
	return errors.New(text)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
