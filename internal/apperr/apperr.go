// Package apperr classifies failures so the HTTP layer can map them to a status
// code and a user-visible message.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

type Kind int

const (
	Unexpected Kind = iota
	Validation
	Conflict
	Unauthenticated
	Forbidden
	NotFound
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Timeout:
		return "timeout"
	default:
		return "unexpected"
	}
}

// Status is the HTTP status code for the kind. Conflicts are reported as 400,
// the same as other rejected preconditions.
func (k Kind) Status() int {
	switch k {
	case Validation, Conflict:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Timeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Invalid(message string) *Error      { return New(Validation, message) }
func Conflicting(message string) *Error  { return New(Conflict, message) }
func Unauthorized(message string) *Error { return New(Unauthenticated, message) }
func Denied(message string) *Error       { return New(Forbidden, message) }
func Missing(message string) *Error      { return New(NotFound, message) }

// KindOf extracts the classification of err. Deadline and cancellation errors
// map to Timeout even when they are not wrapped in an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return Unexpected
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Unexpected
}

// Message returns the text safe to show to a client.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != Unexpected {
		return appErr.Message
	}
	if KindOf(err) == Timeout {
		return "request timeout"
	}
	return "internal server error"
}
