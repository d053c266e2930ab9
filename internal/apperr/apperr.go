// Package apperr defines the error taxonomy shared by the services and the
// HTTP gateway. Every error that reaches a handler is mapped to a status code
// and a human readable message through this package.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type classifies an application error.
type Type int

const (
	// Internal is an unexpected failure, usually in the persistence layer.
	Internal Type = iota
	// Authentication means the caller could not be identified.
	Authentication
	// Authorization means the caller is known but not allowed: a missing or
	// invalid CSRF token, or a resource owned by someone else.
	Authorization
	// Validation is a malformed or out-of-range input.
	Validation
	// NotFound is a referenced resource that does not exist.
	NotFound
)

func (t Type) String() string {
	switch t {
	case Authentication:
		return "authentication"
	case Authorization:
		return "authorization"
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is an application error carrying its classification and an optional cause.
type Error struct {
	Type    Type
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for the error type.
func (e *Error) StatusCode() int {
	switch e.Type {
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func New(t Type, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

func NewAuthentication(message string) *Error {
	return New(Authentication, message, nil)
}

func NewAuthorization(message string) *Error {
	return New(Authorization, message, nil)
}

func NewValidation(message string) *Error {
	return New(Validation, message, nil)
}

func NewNotFound(message string) *Error {
	return New(NotFound, message, nil)
}

func NewInternal(message string, err error) *Error {
	return New(Internal, message, err)
}

// As extracts an *Error from err's chain. Errors that are not application
// errors are reported as Internal with a generic message.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal("Internal server error", err)
}

// IsType reports whether err is an application error of type t.
func IsType(err error, t Type) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Type == t
}
