// Package apperr carries application errors with a stable code that the HTTP
// layer maps onto a status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error condition. Codes are strings so they serialize
// naturally into JSON error bodies.
type Code string

const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeInvalidInput  Code = "INVALID_INPUT"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeUnavailable   Code = "SERVICE_UNAVAILABLE"
)

// Error is an error with a code and a message safe to show to clients.
// Err holds the underlying cause, which is never sent over the wire.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and client message to cause.
func Wrap(cause error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: cause}
}

func NotFound(message string) error     { return New(CodeNotFound, message) }
func Conflict(message string) error     { return New(CodeAlreadyExists, message) }
func Unauthorized(message string) error { return New(CodeUnauthorized, message) }
func Invalid(message string) error      { return New(CodeInvalidInput, message) }

// Internal hides cause behind a generic message.
func Internal(cause error) error {
	return Wrap(cause, CodeInternal, "internal server error")
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the client message for err. Errors without a code are
// reported as a generic internal error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps err onto an HTTP status code.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
