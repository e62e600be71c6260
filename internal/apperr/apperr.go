// Package apperr defines the error codes every operation boundary speaks.
// Services return these; handlers translate them into the JSON envelope and
// an HTTP status. Raw storage errors never cross the boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Code classifies a failure for the caller.
type Code string

const (
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidDay        Code = "INVALID_DAY"
	CodeNotInTimetable    Code = "NOT_IN_TIMETABLE"
	CodeInvalidStudents   Code = "INVALID_STUDENTS"
	CodeValidation        Code = "VALIDATION"
	CodeMarkFailed        Code = "MARK_FAILED"
	CodeProgressionFailed Code = "PROGRESSION_FAILED"
	CodeInternal          Code = "INTERNAL_FAILED"
)

// Error is a coded, user-safe failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// CodeOf extracts the code from err, or CodeInternal for anything uncoded.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// Status maps a code to its HTTP status.
func Status(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidDay, CodeNotInTimetable, CodeInvalidStudents, CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
