package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Prefix: "/_synapse/admin/", Token: "syt_admin"})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "localhost:8008"})
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	c, err := New(Config{BaseURL: "https://matrix.example.org:8448/", Prefix: "_synapse/admin"})
	require.NoError(t, err)

	assert.Equal(t, "https://matrix.example.org:8448/_synapse/admin/v2/users",
		c.URL("/v2/users", nil))
	assert.Equal(t, "https://matrix.example.org:8448/_synapse/admin/v2/users?from=100&limit=10",
		c.URL("v2/users", url.Values{"limit": {"10"}, "from": {"100"}}))

	bare, err := New(Config{BaseURL: "https://matrix.example.org"})
	require.NoError(t, err)
	assert.Equal(t, "https://matrix.example.org/.well-known/matrix/server",
		bare.URL(".well-known/matrix/server", nil))
}

func TestDo_SendsAuthAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/_synapse/admin/v1/reset_password/@alice:example.org", r.URL.Path)
		assert.Equal(t, "Bearer syt_admin", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hunter2", body["new_password"])
		assert.Equal(t, false, body["logout_devices"])

		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "{}")
	})

	resp, err := c.Post(context.Background(), "v1/reset_password/"+PathEscape("@alice:example.org"), nil,
		map[string]any{"new_password": "hunter2", "logout_devices": false})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, resp)
}

func TestDo_TokenOverrideAndNoAuth(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := c.Do(context.Background(), Request{Path: "client/versions", Token: "syt_other"})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Path: "client/versions", NoAuth: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer syt_other", ""}, seen)
}

func TestDo_EmptyBodyAndNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_synapse/admin/v1/empty" {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = io.WriteString(w, `{"total": 2, "creation_ts": 1700000000123, "ratio": 0.5, "users": [{"admin": 1}]}`)
	})

	resp, err := c.Get(context.Background(), "v1/empty", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, resp)

	resp, err = c.Get(context.Background(), "v2/users", nil)
	require.NoError(t, err)
	m := resp.(map[string]any)
	assert.Equal(t, int64(2), m["total"])
	assert.Equal(t, int64(1700000000123), m["creation_ts"])
	assert.Equal(t, 0.5, m["ratio"])
	assert.Equal(t, int64(1), m["users"].([]any)[0].(map[string]any)["admin"])
}

func TestDecode_LargeIntegers(t *testing.T) {
	resp, err := Decode([]byte(`{"stream_ordering": 9007199254740993, "ts": 1.0, "huge": 1e300, "neg": -9223372036854775808}`))
	require.NoError(t, err)

	m := resp.(map[string]any)
	assert.Equal(t, int64(9007199254740993), m["stream_ordering"])
	assert.Equal(t, int64(1), m["ts"])
	assert.Equal(t, 1e300, m["huge"])
	assert.Equal(t, int64(-9223372036854775808), m["neg"])

	_, err = Decode([]byte(`{"a": 1} {"b": 2}`))
	assert.Error(t, err)
}

func TestDo_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errcode":"M_NOT_FOUND","error":"User not found"}`)
	})

	_, err := c.Get(context.Background(), "v2/users/@nobody:example.org", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, ErrCodeNotFound, apiErr.ErrCode)
	assert.Equal(t, "User not found", apiErr.Message)
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.Contains(t, err.Error(), "M_NOT_FOUND")
}

func TestDo_NonMatrixErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down\n")
	})

	_, err := c.Get(context.Background(), "v1/server_version", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "", apiErr.ErrCode)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Prefix: "_synapse/admin"})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "v1/server_version", nil)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, base+"/_synapse/admin/v1/server_version", transportErr.URL)
}

func TestDo_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	})

	_, err := c.Get(context.Background(), "v1/server_version", nil)
	assert.Error(t, err)
}

func TestPathEscape(t *testing.T) {
	assert.Equal(t, "%21abc:example.org", PathEscape("!abc:example.org"))
	assert.Equal(t, "example.org/abc%2Fdef", PathEscape("example.org", "abc/def"))
	assert.Equal(t, "@alice:example.org", PathEscape("@alice:example.org"))
}

func TestSetNonEmpty(t *testing.T) {
	q := url.Values{}
	SetNonEmpty(q, "name", "")
	SetNonEmpty(q, "from", "10")
	assert.Equal(t, "from=10", q.Encode())
}
