// Package errors provides the error taxonomy for the record synchronization
// engine. Stage failures, field-local autosave failures and submit failures
// each have a sentinel so callers can branch with errors.Is, and typed errors
// carry the details needed to report them.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join are re-exported so callers only need one errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Sentinel errors for the synchronization engine.
var (
	// ErrBridgeUnavailable indicates the host bridge never became usable
	// within the configured timeout.
	ErrBridgeUnavailable = errors.New("bridge unavailable")

	// ErrIdentityUnresolved indicates no identity source produced a value.
	// It is recoverable: the caller should offer manual entry.
	ErrIdentityUnresolved = errors.New("identity unresolved")

	// ErrRecordLoadFailed indicates the remote record could not be loaded.
	ErrRecordLoadFailed = errors.New("record load failed")

	// ErrNotFound indicates the remote record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrFieldAutosaveFailed indicates a single-field update failed.
	ErrFieldAutosaveFailed = errors.New("field autosave failed")

	// ErrValidationFailed indicates required fields are empty.
	ErrValidationFailed = errors.New("validation failed")

	// ErrBatchSaveFailed indicates the submit-time batch update failed.
	ErrBatchSaveFailed = errors.New("batch save failed")

	// ErrWorkflowTriggerFailed indicates the workflow trigger failed.
	ErrWorkflowTriggerFailed = errors.New("workflow trigger failed")

	// ErrSubmitInProgress indicates a submit was requested while one is running.
	ErrSubmitInProgress = errors.New("submit in progress")

	// ErrInvalidState indicates an operation is not allowed in the current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrReadOnly indicates an attempt to modify a finished session.
	ErrReadOnly = errors.New("read only")

	// ErrIdentityLocked indicates an attempt to change a resolved identity.
	ErrIdentityLocked = errors.New("identity already resolved")

	// ErrUnknownField indicates a field id that is not bound in the session.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = errors.New("operation canceled")
)

// Kind classifies a failure for routing and reporting.
type Kind string

// Failure kinds.
const (
	KindBridgeUnavailable     Kind = "bridge_unavailable"
	KindIdentityUnresolved    Kind = "identity_unresolved"
	KindRecordLoadFailed      Kind = "record_load_failed"
	KindFieldAutosaveFailed   Kind = "field_autosave_failed"
	KindValidationFailed      Kind = "validation_failed"
	KindBatchSaveFailed       Kind = "batch_save_failed"
	KindWorkflowTriggerFailed Kind = "workflow_trigger_failed"
)

// FieldLocal reports whether failures of this kind belong to a single field
// rather than the whole session.
func (k Kind) FieldLocal() bool {
	return k == KindFieldAutosaveFailed
}

// Sentinel returns the sentinel error matching the kind.
func (k Kind) Sentinel() error {
	switch k {
	case KindBridgeUnavailable:
		return ErrBridgeUnavailable
	case KindIdentityUnresolved:
		return ErrIdentityUnresolved
	case KindRecordLoadFailed:
		return ErrRecordLoadFailed
	case KindFieldAutosaveFailed:
		return ErrFieldAutosaveFailed
	case KindValidationFailed:
		return ErrValidationFailed
	case KindBatchSaveFailed:
		return ErrBatchSaveFailed
	case KindWorkflowTriggerFailed:
		return ErrWorkflowTriggerFailed
	default:
		return nil
	}
}

// Failure is a reportable failure routed either to the session-wide status or
// to a field-local note.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (f *Failure) Error() string {
	if f.Field != "" {
		return fmt.Sprintf("%s on field %s: %s", f.Kind, f.Field, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap implements errors.Unwrap
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is implements errors.Is support
func (f *Failure) Is(target error) bool {
	return target != nil && target == f.Kind.Sentinel()
}

// NewFailure creates a Failure of the given kind from an error.
func NewFailure(kind Kind, field string, err error) *Failure {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &Failure{Kind: kind, Message: message, Field: field, Err: err}
}

// AsFailure converts any error into a Failure. Errors that already are
// failures are returned as-is; others are classified with the fallback kind.
func AsFailure(err error, fallback Kind) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	for _, k := range []Kind{
		KindBridgeUnavailable,
		KindIdentityUnresolved,
		KindRecordLoadFailed,
		KindValidationFailed,
		KindBatchSaveFailed,
		KindWorkflowTriggerFailed,
		KindFieldAutosaveFailed,
	} {
		if errors.Is(err, k.Sentinel()) {
			return NewFailure(k, "", err)
		}
	}
	return NewFailure(fallback, "", err)
}

// BridgeUnavailableError is returned when the host bridge did not appear
// before the timeout.
type BridgeUnavailableError struct {
	Timeout time.Duration
}

// Error implements the error interface
func (e *BridgeUnavailableError) Error() string {
	return fmt.Sprintf("host bridge not available after %s", e.Timeout)
}

// Is implements errors.Is support
func (e *BridgeUnavailableError) Is(target error) bool {
	return target == ErrBridgeUnavailable || target == ErrTimeout
}

// RemoteError represents an error descriptor returned by the host bridge.
type RemoteError struct {
	Method      string
	Code        string
	Description string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("remote error from %s (%s): %s", e.Method, e.Code, e.Description)
	}
	return fmt.Sprintf("remote error from %s: %s", e.Method, e.Code)
}

// Is implements errors.Is support
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.Code == "NOT_FOUND"
}

// NewRemoteError creates a new RemoteError
func NewRemoteError(method, code, description string) *RemoteError {
	return &RemoteError{Method: method, Code: code, Description: description}
}

// NotFoundError represents an error when a remote record is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure. Fields lists the
// offending field ids when more than one field is involved.
type ValidationError struct {
	Field   string
	Fields  []string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	case len(e.Fields) > 0:
		return fmt.Sprintf("validation failed for fields %v: %s", e.Fields, e.Message)
	default:
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed || target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// StageError wraps a failure of one pipeline stage (connect, resolve, load,
// save, trigger) with the kind it should be reported as.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *StageError) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// NewStageError creates a new StageError
func NewStageError(stage string, kind Kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// StateError reports an operation attempted in a lifecycle state that does
// not allow it.
type StateError struct {
	Operation string
	State     string
}

// Error implements the error interface
func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Operation, e.State)
}

// Is implements errors.Is support
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NewStateError creates a new StateError
func NewStateError(operation, state string) *StateError {
	return &StateError{Operation: operation, State: state}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBridgeUnavailable checks if an error means the host bridge is unavailable
func IsBridgeUnavailable(err error) bool {
	return errors.Is(err, ErrBridgeUnavailable)
}

// IsIdentityUnresolved checks if an error asks for manual identity input
func IsIdentityUnresolved(err error) bool {
	return errors.Is(err, ErrIdentityUnresolved)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapStage wraps an error as a StageError
func WrapStage(stage string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return NewStageError(stage, kind, err)
}
