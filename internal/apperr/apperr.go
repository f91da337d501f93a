// Package apperr defines the error taxonomy shared by the service and HTTP layers.
//
// Services return errors that wrap one of the sentinel kinds below; handlers use
// errors.Is to pick the HTTP status. The message given to a constructor is safe to
// show to API clients; the wrapped cause (if any) is only for logs and diagnostics.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Compare with errors.Is, never with ==.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrInternal        = errors.New("internal error")
)

// Error is a classified error with a client-facing message.
type Error struct {
	Kind    error  // one of the sentinel kinds
	Message string // client-facing text
	Cause   error  // optional underlying error, never shown in production
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Is makes errors.Is(err, ErrNotFound) work for any *Error of that kind.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return newf(ErrValidation, format, args...) }
func Unauthenticated(format string, args ...any) error {
	return newf(ErrUnauthenticated, format, args...)
}
func Forbidden(format string, args ...any) error    { return newf(ErrForbidden, format, args...) }
func NotFound(format string, args ...any) error     { return newf(ErrNotFound, format, args...) }
func Conflict(format string, args ...any) error     { return newf(ErrConflict, format, args...) }
func InvalidState(format string, args ...any) error { return newf(ErrInvalidState, format, args...) }

// Internal wraps an unexpected failure (usually from the database) behind a generic message.
func Internal(message string, cause error) error {
	return &Error{Kind: ErrInternal, Message: message, Cause: cause}
}

// Status returns the HTTP status code for err. Unclassified errors are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err. Anything that is not an *Error
// (or is an Internal error) collapses to fallback so internals never leak.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrInternal {
		return e.Message
	}
	return fallback
}
