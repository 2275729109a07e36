// Package errors provides tests for error handling.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client"
)

func TestCLIError(t *testing.T) {
	err := NewServiceUnavailableError("http://localhost:8008", fmt.Errorf("connection refused"))
	if err == nil {
		t.Fatal("NewServiceUnavailableError() returned nil")
	}

	if err.Code != ErrCodeServiceUnavailable {
		t.Errorf("expected ErrCodeServiceUnavailable, got %s", err.Code)
	}

	if err.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", err.ExitCode)
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "http://localhost:8008") {
		t.Errorf("expected endpoint in message, got %q", errMsg)
	}
	if !strings.Contains(errMsg, "Suggestion:") {
		t.Errorf("expected suggestion in message, got %q", errMsg)
	}
}

func TestAuthenticationError(t *testing.T) {
	err := NewAuthenticationError("token expired")
	if err.Code != ErrCodeAuthenticationFailed {
		t.Errorf("expected ErrCodeAuthenticationFailed, got %s", err.Code)
	}
	if err.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %d", err.ExitCode)
	}
	if !strings.Contains(err.Suggestion, "synadm config") {
		t.Errorf("expected suggestion to mention synadm config, got %q", err.Suggestion)
	}
}

func TestUsageAndValidationExitCodes(t *testing.T) {
	if code := NewUsageError("bad flag").ExitCode; code != 2 {
		t.Errorf("usage exit code = %d, want 2", code)
	}
	if code := NewValidationError("bad id", "").ExitCode; code != 2 {
		t.Errorf("validation exit code = %d, want 2", code)
	}
	if code := NewConfigError("Missing config options for batch configuration!", ExitBatchConfigMissing).ExitCode; code != 3 {
		t.Errorf("config exit code = %d, want 3", code)
	}
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
		wantExit int
	}{
		{
			name:     "transport failure",
			err:      &client.TransportError{Method: "GET", URL: "http://localhost:8008/x", Err: fmt.Errorf("dial tcp: connection refused")},
			wantCode: ErrCodeServiceUnavailable,
			wantExit: 3,
		},
		{
			name:     "unauthorized",
			err:      &client.APIError{StatusCode: 401, ErrCode: client.ErrCodeUnknownToken, Message: "Invalid access token"},
			wantCode: ErrCodeAuthenticationFailed,
			wantExit: 1,
		},
		{
			name:     "forbidden",
			err:      &client.APIError{StatusCode: 403, ErrCode: client.ErrCodeForbidden, Message: "You are not a server admin"},
			wantCode: ErrCodeAuthenticationFailed,
			wantExit: 1,
		},
		{
			name:     "not found",
			err:      &client.APIError{StatusCode: 404, ErrCode: client.ErrCodeNotFound, Message: "User not found"},
			wantCode: ErrCodeNotFound,
			wantExit: 1,
		},
		{
			name:     "bad request",
			err:      &client.APIError{StatusCode: 400, ErrCode: "M_INVALID_PARAM", Message: "bad"},
			wantCode: ErrCodeOperationFailed,
			wantExit: 1,
		},
		{
			name:     "wrapped usage error passes through",
			err:      fmt.Errorf("wrapped: %w", NewUsageError("x")),
			wantCode: ErrCodeUsage,
			wantExit: 2,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("response is not valid JSON"),
			wantCode: ErrCodeOperationFailed,
			wantExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromRequest("Users could not be fetched", tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.ExitCode != tt.wantExit {
				t.Errorf("ExitCode = %d, want %d", got.ExitCode, tt.wantExit)
			}
		})
	}
}

func TestFromRequestKeepsCause(t *testing.T) {
	apiErr := &client.APIError{StatusCode: 404, ErrCode: client.ErrCodeNotFound, Message: "Room not found"}
	got := FromRequest("Room details could not be fetched", apiErr)

	var target *client.APIError
	if !stderrors.As(got, &target) {
		t.Fatal("expected APIError to be reachable through Unwrap")
	}
	if got.Message != "Room details could not be fetched" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestFromRequestNil(t *testing.T) {
	if FromRequest("x", nil) != nil {
		t.Error("FromRequest(nil) should return nil")
	}
}
