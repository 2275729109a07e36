// Package errors provides structured error types and recovery suggestions.
//
// Purpose:
//
//	Define consistent error types across all synadm commands with recovery
//	suggestions and clear error messages. Request failures coming back from
//	the homeserver are mapped onto these types by FromRequest so that every
//	command reports authentication, connectivity and API errors the same way.
//
// Exit codes:
//   - 1: general error (API rejected the request, authentication failure)
//   - 2: usage error (bad identifiers, conflicting flags, unconfigured in batch mode)
//   - 3: homeserver unreachable
//   - 3/4/5: configurator failures (see NewConfigError)
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client"
)

// ErrorCode represents a standardized error code.
type ErrorCode string

const (
	// ErrCodeServiceUnavailable indicates the homeserver could not be reached.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeAuthenticationFailed indicates the access token was rejected.
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	// ErrCodeValidationFailed indicates input validation failure.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeOperationFailed indicates a general operation failure.
	ErrCodeOperationFailed ErrorCode = "OPERATION_FAILED"
	// ErrCodeUsage indicates incorrect command usage.
	ErrCodeUsage ErrorCode = "USAGE_ERROR"
	// ErrCodeConfiguration indicates a missing or unwritable configuration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
)

// Exit codes used by the configurator.
const (
	ExitNotConfigured      = 2
	ExitBatchConfigMissing = 3
	ExitConfigWrite        = 4
	ExitConfigIncomplete   = 5
)

// CLIError represents a structured CLI error with recovery suggestions.
type CLIError struct {
	Code       ErrorCode
	Message    string
	Suggestion string
	Details    string
	ExitCode   int
	Err        error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Suggestion != "" {
		msg += "\n\nSuggestion: " + e.Suggestion
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewServiceUnavailableError creates an error for an unreachable homeserver.
func NewServiceUnavailableError(endpoint string, cause error) *CLIError {
	details := fmt.Sprintf("Endpoint: %s", endpoint)
	if cause != nil {
		details += fmt.Sprintf(" (%v)", cause)
	}
	return &CLIError{
		Code:       ErrCodeServiceUnavailable,
		Message:    "Homeserver is unavailable",
		Details:    details,
		Suggestion: fmt.Sprintf("Verify Synapse is running and reachable at %s. Check base_url and timeout with 'synadm config'.", endpoint),
		ExitCode:   3,
		Err:        cause,
	}
}

// NewAuthenticationError creates an error for a rejected access token.
func NewAuthenticationError(details string) *CLIError {
	return &CLIError{
		Code:       ErrCodeAuthenticationFailed,
		Message:    "Authentication failed",
		Details:    details,
		Suggestion: "The configured access token was rejected or lacks admin rights. Re-run 'synadm config' to set a valid admin token.",
		ExitCode:   1,
	}
}

// NewValidationError creates an error for validation failures.
func NewValidationError(message, suggestion string) *CLIError {
	return &CLIError{
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		Details:    message,
		Suggestion: suggestion,
		ExitCode:   2,
	}
}

// NewNotFoundError creates an error for a resource the homeserver does not know.
func NewNotFoundError(message, details string) *CLIError {
	return &CLIError{
		Code:     ErrCodeNotFound,
		Message:  message,
		Details:  details,
		ExitCode: 1,
	}
}

// NewOperationError creates an error for operation failures.
func NewOperationError(message, suggestion string) *CLIError {
	return &CLIError{
		Code:       ErrCodeOperationFailed,
		Message:    "Operation failed",
		Details:    message,
		Suggestion: suggestion,
		ExitCode:   1,
	}
}

// NewUsageError creates an error for incorrect usage.
func NewUsageError(message string) *CLIError {
	return &CLIError{
		Code:       ErrCodeUsage,
		Message:    "Incorrect usage",
		Details:    message,
		Suggestion: "Run with --help for usage information.",
		ExitCode:   2,
	}
}

// NewConfigError creates a configurator error with a specific exit code.
func NewConfigError(message string, exitCode int) *CLIError {
	return &CLIError{
		Code:       ErrCodeConfiguration,
		Message:    message,
		Suggestion: "Run 'synadm config' to set up the connection to your homeserver.",
		ExitCode:   exitCode,
	}
}

// FromRequest maps a failed homeserver request onto a CLIError. The message
// names what could not be done, e.g. "Users could not be fetched".
func FromRequest(message string, err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return cliErr
	}

	var transportErr *client.TransportError
	if stderrors.As(err, &transportErr) {
		return NewServiceUnavailableError(transportErr.URL, transportErr.Err)
	}

	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized,
			apiErr.StatusCode == http.StatusForbidden,
			apiErr.ErrCode == client.ErrCodeUnknownToken,
			apiErr.ErrCode == client.ErrCodeMissingToken:
			authErr := NewAuthenticationError(apiErr.Error())
			authErr.Err = err
			return authErr
		case apiErr.StatusCode == http.StatusNotFound:
			notFound := NewNotFoundError(message, apiErr.Error())
			notFound.Err = err
			return notFound
		}
		return &CLIError{
			Code:     ErrCodeOperationFailed,
			Message:  message,
			Details:  apiErr.Error(),
			ExitCode: 1,
			Err:      err,
		}
	}

	return &CLIError{
		Code:       ErrCodeOperationFailed,
		Message:    message,
		Details:    err.Error(),
		Suggestion: "Enable debug output with -vv to see the full request.",
		ExitCode:   1,
		Err:        err,
	}
}
