// Package client provides the request helper shared by the Synapse admin API
// and Matrix client-server API clients.
//
// Purpose:
//
//	Centralize URL templating, bearer token injection, JSON encoding of
//	request bodies, decoding of JSON responses and mapping of non-2xx
//	responses onto typed errors. Requests are issued exactly once; failures
//	are reported, never retried.
//
// Dependencies:
//   - net/http: HTTP transport
//   - go.uber.org/zap: request logging
//   - internal/logging: redaction of tokens and passwords in debug output
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/logging"
)

// maxResponseSize bounds how much of a response body is read into memory.
const maxResponseSize = 32 << 20

// Config holds the settings needed to build a Client.
type Config struct {
	// BaseURL is scheme, host and port of the homeserver, e.g. "https://matrix.example.org:8448".
	BaseURL string
	// Prefix is the API path prefix, e.g. "/_synapse/admin" or "/_matrix". May be empty.
	Prefix string
	// Token is the access token sent as a bearer token. Empty means no Authorization header.
	Token string
	// Timeout applies to every request. Zero means 30 seconds.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// HTTPClient overrides the transport entirely (tests).
	HTTPClient *http.Client
	// Logger receives request logs. Nil means no logging.
	Logger *zap.Logger
}

// Client issues JSON requests against one API prefix of a homeserver.
type Client struct {
	baseURL    string
	prefix     string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via ssl_verify: false
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		prefix:     strings.Trim(cfg.Prefix, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Request describes one API call.
type Request struct {
	Method string
	// Path is appended to the prefix as-is; callers escape path segments
	// with url.PathEscape.
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Token overrides the client's token for this request.
	Token string
	// NoAuth suppresses the Authorization header.
	NoAuth bool
}

// URL returns the absolute URL for path and query under the client's prefix.
func (c *Client) URL(path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	if c.prefix != "" {
		b.WriteString("/")
		b.WriteString(c.prefix)
	}
	if path = strings.TrimLeft(path, "/"); path != "" {
		b.WriteString("/")
		b.WriteString(path)
	}
	if encoded := query.Encode(); encoded != "" {
		if strings.Contains(path, "?") {
			b.WriteString("&")
		} else {
			b.WriteString("?")
		}
		b.WriteString(encoded)
	}
	return b.String()
}

// Do sends req and returns the decoded JSON response.
func (c *Client) Do(ctx context.Context, req Request) (any, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	requestURL := c.URL(req.Path, req.Query)

	var bodyReader io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		c.logger.Debug("request body", zap.String("body", logging.RedactString(string(encoded))))
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	token := c.token
	if req.Token != "" {
		token = req.Token
	}
	if token != "" && !req.NoAuth {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Info(fmt.Sprintf("Querying %s on %s", method, requestURL))
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: method, URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{Method: method, URL: requestURL, Err: fmt.Errorf("read response body: %w", err)}
	}

	c.logger.Debug("response received",
		zap.String("method", method),
		zap.String("url", requestURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, URL: requestURL}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.ErrCode == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		c.logger.Error(fmt.Sprintf("%s while querying Synapse: %s", http.StatusText(resp.StatusCode), apiErr.Message),
			zap.String("errcode", apiErr.ErrCode))
		return nil, apiErr
	}

	return Decode(body)
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (any, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (any, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Body: body})
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (any, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete issues a DELETE request with an optional JSON body.
func (c *Client) Delete(ctx context.Context, path string, body any) (any, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Body: body})
}

// Decode parses a JSON response body. An empty body decodes to an empty
// object. Integral numbers are returned as int64 so that timestamps and
// counters keep their exact value when re-encoded.
func Decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var result any
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("response is not valid JSON: trailing data after value")
	}
	return normalizeNumbers(result), nil
}

func normalizeNumbers(v any) any {
	switch value := v.(type) {
	case map[string]any:
		for k, item := range value {
			value[k] = normalizeNumbers(item)
		}
		return value
	case []any:
		for i, item := range value {
			value[i] = normalizeNumbers(item)
		}
		return value
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return n
		}
		f, err := value.Float64()
		if err != nil {
			return value
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	default:
		return v
	}
}

// SetNonEmpty adds key=value to query unless value is empty.
func SetNonEmpty(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}

// PathEscape escapes each argument as a single path segment and joins them with "/".
func PathEscape(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}
