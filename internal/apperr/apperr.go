// Package apperr defines the error taxonomy shared by services and HTTP handlers.
// Every error carries a string Code so it serializes naturally to JSON and maps
// to one HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeNotFound covers both missing records and records owned by someone else.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidInput indicates a missing field, bad enum value or malformed value.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeAlreadyExists indicates a duplicate unique field.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeDatabase indicates a data-store operation failed.
	CodeDatabase Code = "DATABASE_ERROR"

	// CodeUnauthorized indicates missing or invalid credentials.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeInternal is used for anything unclassified.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing (or foreign) record.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Invalid reports a validation failure; details usually holds validation.Violations.
func Invalid(msg string, details any) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg, Details: details}
}

// Conflict reports a duplicate unique value.
func Conflict(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Dependency wraps a data-store failure.
func Dependency(msg string, err error) *Error {
	return &Error{Code: CodeDatabase, Message: msg, Err: err}
}

// Unauthorized reports a credential problem; reason is machine readable.
func Unauthorized(msg, reason string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg, Details: reason}
}

// CodeOf returns the code of err, or CodeInternal if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an error to the status code surfaced by the REST boundary.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeAlreadyExists:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
