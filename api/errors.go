package api

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Application error codes.
const (
	EMISSINGFIELD    = "missing_field"
	EINVALID         = "invalid"
	EREFERENCE       = "reference_not_found"
	EDUPLICATE       = "duplicate_application"
	ENOTFOUND        = "not_found"
	EUNAUTHORIZED    = "unauthorized"
	EFORBIDDEN       = "forbidden"
	EUNAUTHENTICATED = "unauthenticated"
	EUNAVAILABLE     = "unavailable"
	EINTERNAL        = "internal"
)

// Error represents an application-specific error.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable error message.
	Message string

	// DebugInfo contains low-level details that are logged but never returned to the client.
	DebugInfo string
}

func (e *Error) Error() string {
	return fmt.Sprintf("error: code=%s message=%s", e.Code, e.Message)
}

func (e *Error) WithDebugInfo(msg string, args ...any) *Error {
	e.DebugInfo = fmt.Sprintf(msg, args...)
	return e
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	if oe, ok := oops.AsOops(err); ok {
		if code, ok := any(oe.Code()).(string); ok && code != "" {
			return code
		}
	}

	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Internal and unavailable errors return a generic message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	switch ErrorCode(err) {
	case EINTERNAL:
		return "internal error"
	case EUNAVAILABLE:
		return "temporarily unavailable, please retry"
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	if oe, ok := oops.AsOops(err); ok {
		return oe.Error()
	}

	return "internal error"
}

// ErrorDebugInfo returns the low-level details of an error, if any.
func ErrorDebugInfo(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.DebugInfo
	}

	switch ErrorCode(err) {
	case EINTERNAL, EUNAVAILABLE:
		return err.Error()
	}

	return ""
}
