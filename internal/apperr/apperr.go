// Package apperr defines the error type that crosses the handler boundary.
// Operational errors carry a status code and a message that is safe to show
// to the caller.  Anything else is unexpected: it is logged in full and
// reported as a generic internal error outside of development mode.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Error is an HTTP-aware application error.
type Error struct {
	Status      int
	Message     string
	Operational bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil && !e.Operational {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an operational error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message, Operational: true}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }

// Internal marks err as unexpected and records a stack trace for it.
func Internal(err error) *Error {
	if err == nil {
		err = errors.New("internal error")
	}
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: "Internal Server Error",
		Err:     pkgerrors.WithStack(err),
	}
}

// From converts any error into an *Error.  Errors that are not already
// application errors become internal errors.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Stack returns the recorded stack trace of err, or an empty string.
func Stack(err error) string {
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return ""
}
