package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: "meal not found",
	}

	expected := "NOT_FOUND: meal not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("payload is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "payload is required" {
		t.Errorf("Message = %q, want %q", err.Message, "payload is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("saved-1700000000000")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "saved-1700000000000" {
		t.Errorf("Details[id] = %v, want %q", err.Details["id"], "saved-1700000000000")
	}
}

func TestNewAuth(t *testing.T) {
	err := NewAuth("auth/weak-password", "Password should be at least 6 characters long.")

	if err.Code != ErrAuth {
		t.Errorf("Code = %q, want %q", err.Code, ErrAuth)
	}
	if err.Status != 401 {
		t.Errorf("Status = %d, want 401", err.Status)
	}
	if err.Details["provider_code"] != "auth/weak-password" {
		t.Errorf("Details[provider_code] = %v", err.Details["provider_code"])
	}
}

func TestNewUpstreamStatus(t *testing.T) {
	err := NewUpstreamStatus(500, "model offline")

	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Message != "Server error (500): model offline" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["upstream_status"] != 500 {
		t.Errorf("Details[upstream_status] = %v, want 500", err.Details["upstream_status"])
	}
}

func TestNewAnalyzeTimeout(t *testing.T) {
	err := NewAnalyzeTimeout(25 * time.Second)

	if err.Code != ErrAnalyzeTimeout {
		t.Errorf("Code = %q, want %q", err.Code, ErrAnalyzeTimeout)
	}
	if err.Status != 504 {
		t.Errorf("Status = %d, want 504", err.Status)
	}
	if err.Details["timeout_seconds"] != 25.0 {
		t.Errorf("Details[timeout_seconds] = %v, want 25", err.Details["timeout_seconds"])
	}
}

func TestNewUpstreamUnavailable_NilError(t *testing.T) {
	err := NewUpstreamUnavailable(nil)
	if err.Message != "unable to analyze image" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Code != ErrInternal || err.Status != 500 {
		t.Errorf("got %s/%d, want INTERNAL/500", err.Code, err.Status)
	}
	if err.Message != "disk full" {
		t.Errorf("Message = %q", err.Message)
	}

	nilErr := NewInternal(nil)
	if nilErr.Message != "internal error" {
		t.Errorf("Message = %q, want %q", nilErr.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrInvalidRequest, false},
		{"wrapped", fmt.Errorf("lookup: %w", NewNotFound("x")), ErrNotFound, true},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	nf := NewNotFound("x")
	if got := As(nf); got != nf {
		t.Error("As should return the same *Error")
	}

	got := As(fmt.Errorf("boom"))
	if got.Code != ErrInternal {
		t.Errorf("Code = %q, want %q", got.Code, ErrInternal)
	}
}

func TestNewReplyTooLarge(t *testing.T) {
	err := NewReplyTooLarge(1024)

	if err.Code != ErrUpstreamStatus {
		t.Errorf("Code = %q, want %q", err.Code, ErrUpstreamStatus)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Details["max_bytes"] != int64(1024) {
		t.Errorf("Details[max_bytes] = %v, want 1024", err.Details["max_bytes"])
	}
}

func TestNewProfileNotFound(t *testing.T) {
	err := NewProfileNotFound("a@b.co")

	if !Is(err, ErrNotFound) {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Details["email"] != "a@b.co" {
		t.Errorf("Details[email] = %v, want a@b.co", err.Details["email"])
	}
}
