// Package apperror defines the error kinds the API reports and the JSON
// envelope they are rendered in. Every error that reaches a client goes
// through this package so internal details never leak.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the client.
type Kind string

const (
	InvalidArgument    Kind = "InvalidArgument"
	Unauthorized       Kind = "Unauthorized"
	NotFound           Kind = "NotFound"
	RateLimited        Kind = "RateLimited"
	ServiceUnavailable Kind = "ServiceUnavailable"
	Internal           Kind = "Internal"
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is an error with a client-facing kind and message. Err holds the
// internal cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperror.New(NotFound, ""))
// holds for every NotFound error in the chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and client message to an internal error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of err, or Internal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Body is the JSON error envelope.
type Body struct {
	Error Detail `json:"error"`
}

// Detail is the inner object of the envelope.
type Detail struct {
	Code    Kind   `json:"code"`
	Message string `json:"message"`
}

// BodyOf converts any error into the envelope. Errors without a kind are
// reported as Internal with a generic message.
func BodyOf(err error) (int, Body) {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		msg := e.Message
		if msg == "" {
			msg = string(e.Kind)
		}
		return e.Kind.Status(), Body{Error: Detail{Code: e.Kind, Message: msg}}
	}
	return http.StatusInternalServerError, Body{Error: Detail{Code: Internal, Message: "internal server error"}}
}
