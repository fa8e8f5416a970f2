package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

const (
	// ErrNotInitialized means a backing collection is absent. Stores resolve
	// this lazily by creating the collection on first write; reads degrade
	// to empty results instead of surfacing it.
	ErrNotInitialized ErrorCode = "NOT_INITIALIZED"

	// ErrBackendUnavailable means a backend round-trip failed. Never retried
	// at this layer.
	ErrBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"

	// ErrCollectionNotFound means the backend does not know the collection.
	ErrCollectionNotFound ErrorCode = "COLLECTION_NOT_FOUND"

	// ErrDimensionMismatch means a collection's configured vector size
	// disagrees with the expected embedding dimension.
	ErrDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"

	// ErrDeserialization means a stored point's payload could not be parsed
	// back into a domain record.
	ErrDeserialization ErrorCode = "DESERIALIZATION_FAILURE"

	// ErrInvalidID means a caller-supplied id is not a valid UUID.
	ErrInvalidID ErrorCode = "INVALID_ID"

	// ErrInvalidArgument means malformed caller input other than ids.
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrConfirmationRequired means a destructive operation was invoked
	// without its explicit opt-in flag.
	ErrConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"

	// ErrEmbeddingFailed means the embedding function returned an error.
	ErrEmbeddingFailed ErrorCode = "EMBEDDING_FAILED"

	// ErrLayerOverlap means a collection is mapped into more than one
	// cognitive layer.
	ErrLayerOverlap ErrorCode = "LAYER_OVERLAP"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
