// Package errors provides the typed error system shared by all
// application layers. Handlers map error kinds to HTTP statuses,
// services use the predicates to decide retry and degradation
// behavior, and the cache layer uses the Unavailable kind to let
// callers distinguish "no value" from "store unreachable".
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for handling and response mapping.
type Kind string

const (
	// Business errors
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"

	// Infrastructure errors
	KindInternal    Kind = "INTERNAL"
	KindTimeout     Kind = "TIMEOUT"
	KindConnection  Kind = "CONNECTION"
	KindUnavailable Kind = "UNAVAILABLE"
)

// Error is the application error type. It carries a kind for
// programmatic handling, a stable code, and optional operation and
// resource context for logging.
type Error struct {
	Kind      Kind   `json:"kind"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Operation string `json:"operation,omitempty"`
	Resource  string `json:"resource,omitempty"`
	Retryable bool   `json:"retryable"`
	Cause     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithOperation records the operation that failed.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithResource records the resource being operated on.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// WithCause attaches the underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Validation creates a validation error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound creates a not-found error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict creates a conflict error.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Internal creates an internal error.
func Internal(code, message string) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: message}
}

// Timeout creates a timeout error. Timeouts are retryable.
func Timeout(code, message string) *Error {
	return &Error{Kind: KindTimeout, Code: code, Message: message, Retryable: true}
}

// Connection creates a connection error. Connection errors are retryable.
func Connection(code, message string) *Error {
	return &Error{Kind: KindConnection, Code: code, Message: message, Retryable: true}
}

// Unavailable marks an optional dependency (the cache store) as
// unreachable. Callers treat it as a soft failure, never a request error.
func Unavailable(code, message string) *Error {
	return &Error{Kind: KindUnavailable, Code: code, Message: message, Retryable: true}
}

// Wrap adds operation context to an existing error, preserving the kind
// of an already-typed error and classifying everything else as internal.
func Wrap(err error, operation, message string) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return &Error{
			Kind:      appErr.Kind,
			Code:      appErr.Code,
			Message:   message,
			Operation: operation,
			Resource:  appErr.Resource,
			Retryable: appErr.Retryable,
			Cause:     err,
		}
	}
	return &Error{
		Kind:      KindInternal,
		Code:      "WRAPPED",
		Message:   message,
		Operation: operation,
		Cause:     err,
	}
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

func IsValidation(err error) bool  { return IsKind(err, KindValidation) }
func IsNotFound(err error) bool    { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool    { return IsKind(err, KindConflict) }
func IsUnavailable(err error) bool { return IsKind(err, KindUnavailable) }

// IsRetryable reports whether the operation that produced err can be retried.
func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
