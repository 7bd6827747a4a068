package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents a platescan error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrAuth                ErrorCode = "AUTH_FAILED"          // 401
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrPayloadTooLarge     ErrorCode = "PAYLOAD_TOO_LARGE"    // 413
	ErrInternal            ErrorCode = "INTERNAL"             // 500
	ErrUpstreamStatus      ErrorCode = "UPSTREAM_STATUS"      // 502
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE" // 503
	ErrAnalyzeTimeout      ErrorCode = "ANALYZE_TIMEOUT"      // 504
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewAuth creates a 401 error for an identity provider failure.
// The provider code is kept in Details; Message is the human-readable text.
func NewAuth(code, message string) *Error {
	return &Error{
		Code:    ErrAuth,
		Status:  401,
		Message: message,
		Details: map[string]any{"provider_code": code},
	}
}

// NewNotFound creates a 404 error for when a meal cannot be found.
func NewNotFound(id string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("meal not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewProfileNotFound creates a 404 error for an account that has not onboarded.
func NewProfileNotFound(email string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("no onboarding profile for %s", email),
		Details: map[string]any{"email": email},
	}
}

// NewPayloadTooLarge creates a 413 error for oversized uploads.
func NewPayloadTooLarge(max int64) *Error {
	return &Error{
		Code:    ErrPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("upload exceeds maximum size of %d bytes", max),
		Details: map[string]any{"max_bytes": max},
	}
}

// NewUpstreamStatus creates a 502 error for a non-2xx analysis response.
// The response body is carried verbatim as error detail.
func NewUpstreamStatus(status int, body string) *Error {
	return &Error{
		Code:    ErrUpstreamStatus,
		Status:  502,
		Message: fmt.Sprintf("Server error (%d): %s", status, body),
		Details: map[string]any{"upstream_status": status, "body": body},
	}
}

// NewReplyTooLarge creates a 502 error for a 2xx analysis reply over the size cap.
func NewReplyTooLarge(max int64) *Error {
	return &Error{
		Code:    ErrUpstreamStatus,
		Status:  502,
		Message: fmt.Sprintf("analysis reply exceeds maximum size of %d bytes", max),
		Details: map[string]any{"max_bytes": max},
	}
}

// NewUpstreamUnavailable creates a 503 error for a transport failure.
func NewUpstreamUnavailable(err error) *Error {
	msg := "unable to analyze image"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrUpstreamUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewAnalyzeTimeout creates a 504 error when the analysis call exceeds its deadline.
func NewAnalyzeTimeout(timeout time.Duration) *Error {
	return &Error{
		Code:    ErrAnalyzeTimeout,
		Status:  504,
		Message: fmt.Sprintf("analysis request timed out after %s", timeout),
		Details: map[string]any{"timeout_seconds": timeout.Seconds()},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if err (or anything it wraps) is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As returns err as an *Error, wrapping unknown errors as INTERNAL.
func As(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return NewInternal(err)
}
