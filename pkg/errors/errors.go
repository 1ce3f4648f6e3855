// Package errors defines the sentinel errors shared across oxidex and a
// structured AppError that carries an HTTP status for the API layer.
//
// Only document registration can fail (file read or metadata stat); every
// other engine operation is total and signals absence with a boolean or nil
// result instead of an error.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDocumentRead marks a failure to read a document's bytes.
	ErrDocumentRead = errors.New("document read failed")
	// ErrDocumentStat marks a failure to capture filesystem metadata.
	ErrDocumentStat = errors.New("document metadata failed")
	// ErrDocumentNotFound marks a lookup of an id that was never issued or
	// has been removed.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidInput marks a malformed request at the API boundary.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal marks an unexpected internal failure.
	ErrInternal = errors.New("internal error")
)

// AppError wraps a sentinel with a human-readable message and an HTTP
// status code for transport mapping.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError from a sentinel.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf builds an AppError with a formatted message.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps err to an HTTP status. An explicit AppError status
// wins; otherwise the sentinel decides.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentRead), errors.Is(err, ErrDocumentStat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
