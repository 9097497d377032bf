// Package errors defines the error kinds raised by the quarterdeck core.
//
// Every failure that crosses the core's boundary is one of four kinds:
//   - ValidationError: a payload failed schema validation (caller's fault)
//   - NotFoundError: an unknown action, signal, agent, or state key
//   - DuplicateNameError: a registration conflict (fatal during plugin load)
//   - InternalError: an unexpected handler failure
//
// The transport layer maps these kinds onto protocol status codes; the core
// only needs to raise something classifiable.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError indicates a payload that failed schema validation.
// Fields names the offending field(s).
type ValidationError struct {
	Fields  []string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("validation error on %s: %s", strings.Join(e.Fields, ", "), e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidation creates a ValidationError for the given fields.
func NewValidation(message string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: message}
}

// NotFoundError indicates an unknown identifier.
// Kind is the namespace ("action", "signal", "agent", "state").
type NotFoundError struct {
	Kind string
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// NewNotFound creates a NotFoundError for the given kind and name.
func NewNotFound(kind, name string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name}
}

// DuplicateNameError indicates a registration conflict. Raised while loading
// plugins it means a misconfigured deployment; startup should abort.
type DuplicateNameError struct {
	Kind string
	Name string
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s already registered: %s", e.Kind, e.Name)
}

// NewDuplicateName creates a DuplicateNameError for the given kind and name.
func NewDuplicateName(kind, name string) *DuplicateNameError {
	return &DuplicateNameError{Kind: kind, Name: name}
}

// InternalError wraps an unexpected handler failure.
type InternalError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *InternalError) Unwrap() error {
	return e.Err
}

// NewInternal wraps err as an InternalError attributed to op.
func NewInternal(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}

// IsValidation returns true if err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound returns true if err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsDuplicateName returns true if err is (or wraps) a DuplicateNameError.
func IsDuplicateName(err error) bool {
	var de *DuplicateNameError
	return errors.As(err, &de)
}

// Kind returns the error kind name used in error envelopes and logs.
// Unrecognized errors are classified as InternalError.
func Kind(err error) string {
	switch {
	case IsValidation(err):
		return "ValidationError"
	case IsNotFound(err):
		return "NotFoundError"
	case IsDuplicateName(err):
		return "DuplicateNameError"
	default:
		return "InternalError"
	}
}
