package client

import "fmt"

// Matrix error codes the CLI reacts to.
const (
	ErrCodeUnknownToken = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken = "M_MISSING_TOKEN"
	ErrCodeForbidden    = "M_FORBIDDEN"
	ErrCodeNotFound     = "M_NOT_FOUND"
)

// APIError is a non-2xx response from the homeserver. ErrCode and Message
// come from the standard Matrix error body {"errcode": ..., "error": ...};
// when the body has another shape Message holds it verbatim.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrCode    string `json:"errcode"`
	Message    string `json:"error"`
	Method     string `json:"-"`
	URL        string `json:"-"`
}

func (e *APIError) Error() string {
	if e.ErrCode != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s: %s", e.Method, e.URL, e.StatusCode, e.ErrCode, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// TransportError means the request never produced an HTTP response:
// connection refused, DNS failure, TLS failure or timeout.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
