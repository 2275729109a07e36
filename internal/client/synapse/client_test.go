package synapse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeSynapse records every request and answers with the JSON returned by respond.
func fakeSynapse(t *testing.T, respond func(r *http.Request) string) (*Client, *[]recordedRequest) {
	t.Helper()
	var recorded []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.Body))
		}
		recorded = append(recorded, rec)
		body := "{}"
		if respond != nil {
			body = respond(r)
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(client.Config{BaseURL: srv.URL, Prefix: "/_synapse/admin", Token: "syt_admin"})
	require.NoError(t, err)
	return c, &recorded
}

func TestUserEndpoints(t *testing.T) {
	c, recorded := fakeSynapse(t, nil)
	ctx := context.Background()

	_, err := c.UserList(ctx, UserListOptions{From: 0, Limit: 100, Guests: boolPtr(true), Deactivated: true, Name: "ali"})
	require.NoError(t, err)
	_, err = c.UserList(ctx, UserListOptions{From: 10, Limit: 5, UserID: "@bob"})
	require.NoError(t, err)
	_, err = c.UserDetails(ctx, "@alice:example.org")
	require.NoError(t, err)
	_, err = c.UserMembership(ctx, "@alice:example.org")
	require.NoError(t, err)
	_, err = c.UserDeactivate(ctx, "@alice:example.org", true)
	require.NoError(t, err)
	_, err = c.UserPassword(ctx, "@alice:example.org", "hunter2", true)
	require.NoError(t, err)
	_, err = c.UserPassword(ctx, "@alice:example.org", "hunter2", false)
	require.NoError(t, err)
	_, err = c.UserWhois(ctx, "@alice:example.org")
	require.NoError(t, err)

	reqs := *recorded
	require.Len(t, reqs, 8)

	assert.Equal(t, "/_synapse/admin/v2/users", reqs[0].Path)
	assert.Equal(t, "deactivated=true&from=0&guests=true&limit=100&name=ali", reqs[0].Query)
	assert.Equal(t, "from=10&limit=5&user_id=%40bob", reqs[1].Query)
	assert.Equal(t, "/_synapse/admin/v2/users/@alice:example.org", reqs[2].Path)
	assert.Equal(t, "/_synapse/admin/v1/users/@alice:example.org/joined_rooms", reqs[3].Path)

	assert.Equal(t, http.MethodPost, reqs[4].Method)
	assert.Equal(t, "/_synapse/admin/v1/deactivate/@alice:example.org", reqs[4].Path)
	assert.Equal(t, map[string]any{"erase": true}, reqs[4].Body)

	assert.Equal(t, map[string]any{"new_password": "hunter2", "logout_devices": false}, reqs[5].Body)
	assert.Equal(t, map[string]any{"new_password": "hunter2"}, reqs[6].Body)
	assert.Equal(t, "/_synapse/admin/v1/whois/@alice:example.org", reqs[7].Path)
}

func TestUserModify(t *testing.T) {
	c, recorded := fakeSynapse(t, nil)

	name := "Alice"
	admin := false
	_, err := c.UserModify(context.Background(), "@alice:example.org", UserModification{
		DisplayName: &name,
		Admin:       &admin,
		Threepids:   []Threepid{{Medium: "email", Address: "alice@example.org"}},
	})
	require.NoError(t, err)

	req := (*recorded)[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/_synapse/admin/v2/users/@alice:example.org", req.Path)
	assert.Equal(t, map[string]any{
		"displayname": "Alice",
		"admin":       false,
		"threepids":   []any{map[string]any{"medium": "email", "address": "alice@example.org"}},
	}, req.Body)
}

func TestRoomEndpoints(t *testing.T) {
	c, recorded := fakeSynapse(t, nil)
	ctx := context.Background()

	_, err := c.RoomList(ctx, RoomListOptions{From: 0, Limit: 100, Name: "lobby", OrderBy: "joined_members", Reverse: true})
	require.NoError(t, err)
	_, err = c.RoomDetails(ctx, "!abc:example.org")
	require.NoError(t, err)
	_, err = c.RoomMembers(ctx, "!abc:example.org")
	require.NoError(t, err)
	_, err = c.RoomDelete(ctx, "!abc:example.org", RoomDeleteOptions{Block: true, Purge: true, Message: "bye"})
	require.NoError(t, err)

	reqs := *recorded
	assert.Equal(t, "dir=b&from=0&limit=100&order_by=joined_members&search_term=lobby", reqs[0].Query)
	assert.Equal(t, "/_synapse/admin/v1/rooms/%21abc:example.org", reqs[1].Path)
	assert.Equal(t, "/_synapse/admin/v1/rooms/%21abc:example.org/members", reqs[2].Path)
	assert.Equal(t, http.MethodDelete, reqs[3].Method)
	assert.Equal(t, map[string]any{"block": true, "purge": true, "message": "bye"}, reqs[3].Body)
}

func TestMediaEndpoints(t *testing.T) {
	c, recorded := fakeSynapse(t, nil)
	ctx := context.Background()

	_, err := c.RoomMediaList(ctx, "!abc:example.org")
	require.NoError(t, err)
	_, err = c.MediaQuarantine(ctx, "example.org", "abcDEF")
	require.NoError(t, err)
	_, err = c.RoomMediaQuarantine(ctx, "!abc:example.org")
	require.NoError(t, err)
	_, err = c.UserMediaQuarantine(ctx, "@alice:example.org")
	require.NoError(t, err)
	_, err = c.MediaProtect(ctx, "abcDEF")
	require.NoError(t, err)
	_, err = c.MediaDelete(ctx, "example.org", "abcDEF")
	require.NoError(t, err)
	_, err = c.MediaDeleteByDateOrSize(ctx, "example.org", MediaDeleteOptions{BeforeTS: 1600000000000, SizeGT: 1024})
	require.NoError(t, err)
	_, err = c.MediaDeleteByDateOrSize(ctx, "example.org", MediaDeleteOptions{BeforeTS: 1600000000000, KeepProfiles: true})
	require.NoError(t, err)
	_, err = c.PurgeRemoteMedia(ctx, 1600000000000)
	require.NoError(t, err)

	reqs := *recorded
	assert.Equal(t, "/_synapse/admin/v1/room/%21abc:example.org/media", reqs[0].Path)
	assert.Equal(t, "/_synapse/admin/v1/media/quarantine/example.org/abcDEF", reqs[1].Path)
	assert.Equal(t, "/_synapse/admin/v1/room/%21abc:example.org/media/quarantine", reqs[2].Path)
	assert.Equal(t, "/_synapse/admin/v1/user/@alice:example.org/media/quarantine", reqs[3].Path)
	assert.Equal(t, "/_synapse/admin/v1/media/protect/abcDEF", reqs[4].Path)
	assert.Equal(t, http.MethodDelete, reqs[5].Method)
	assert.Equal(t, "/_synapse/admin/v1/media/example.org/abcDEF", reqs[5].Path)
	assert.Equal(t, "/_synapse/admin/v1/media/example.org/delete", reqs[6].Path)
	assert.Equal(t, "before_ts=1600000000000&keep_profiles=false&size_gt=1024", reqs[6].Query)
	assert.Equal(t, "before_ts=1600000000000", reqs[7].Query)
	assert.Equal(t, "/_synapse/admin/v1/purge_media_cache", reqs[8].Path)
	assert.Equal(t, "before_ts=1600000000000", reqs[8].Query)
}

func TestHistoryAndGroup(t *testing.T) {
	c, recorded := fakeSynapse(t, nil)
	ctx := context.Background()

	_, err := c.PurgeHistory(ctx, "!abc:example.org", PurgeHistoryOptions{EventID: "$ev", DeleteLocal: true})
	require.NoError(t, err)
	_, err = c.PurgeHistory(ctx, "!abc:example.org", PurgeHistoryOptions{BeforeTS: 1600000000000})
	require.NoError(t, err)
	_, err = c.PurgeHistoryStatus(ctx, "purge123")
	require.NoError(t, err)
	_, err = c.GroupDelete(ctx, "+group:example.org")
	require.NoError(t, err)

	reqs := *recorded
	assert.Equal(t, "/_synapse/admin/v1/purge_history/%21abc:example.org", reqs[0].Path)
	assert.Equal(t, map[string]any{"delete_local_events": true, "purge_up_to_event_id": "$ev"}, reqs[0].Body)
	assert.Equal(t, map[string]any{"delete_local_events": false, "purge_up_to_ts": float64(1600000000000)}, reqs[1].Body)
	assert.Equal(t, "/_synapse/admin/v1/purge_history_status/purge123", reqs[2].Path)
	assert.Equal(t, "/_synapse/admin/v1/delete_group/+group:example.org", reqs[3].Path)
}

func TestNoticeSend(t *testing.T) {
	c, recorded := fakeSynapse(t, func(*http.Request) string { return `{"event_id":"$1"}` })

	resp, err := c.NoticeSend(context.Background(), "@alice:example.org", Notice{Plain: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, "$1", resp.(map[string]any)["event_id"])

	req := (*recorded)[0]
	assert.Equal(t, "/_synapse/admin/v1/send_server_notice", req.Path)
	assert.Equal(t, map[string]any{
		"user_id": "@alice:example.org",
		"content": map[string]any{
			"msgtype":        "m.text",
			"body":           "maintenance",
			"format":         "org.matrix.custom.html",
			"formatted_body": "maintenance",
		},
	}, req.Body)
}

func TestMatchingUsers_Paginates(t *testing.T) {
	c, recorded := fakeSynapse(t, func(r *http.Request) string {
		switch r.URL.Query().Get("from") {
		case "0":
			return `{"users":[{"name":"@alice:example.org"},{"name":"@bob:example.org"}],"next_token":"2","total":3}`
		default:
			return `{"users":[{"name":"@alina:example.org"}],"total":3}`
		}
	})

	users, err := c.MatchingUsers(context.Background(), regexp.MustCompile(`^(?:@ali)`), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"@alice:example.org", "@alina:example.org"}, users)

	reqs := *recorded
	require.Len(t, reqs, 2)
	assert.Equal(t, "from=0&guests=false&limit=2", reqs[0].Query)
	assert.Equal(t, "from=2&guests=false&limit=2", reqs[1].Query)
}

func TestMatchingUsers_StopsWhenTokenDoesNotAdvance(t *testing.T) {
	c, recorded := fakeSynapse(t, func(r *http.Request) string {
		return `{"users":[{"name":"@alice:example.org"}],"next_token":"0","total":5}`
	})

	users, err := c.MatchingUsers(context.Background(), regexp.MustCompile(`^(?:@)`), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"@alice:example.org"}, users)
	assert.Len(t, *recorded, 1)
}

func TestRegTokenEndpoints(t *testing.T) {
	c, recorded := fakeSynapse(t, nil)
	ctx := context.Background()

	valid := true
	uses := int64(5)
	_, err := c.RegTokenList(ctx, &valid)
	require.NoError(t, err)
	_, err = c.RegTokenList(ctx, nil)
	require.NoError(t, err)
	_, err = c.RegTokenDetails(ctx, "abcd")
	require.NoError(t, err)
	_, err = c.RegTokenNew(ctx, RegTokenOptions{Length: 16, UsesAllowed: &uses})
	require.NoError(t, err)
	_, err = c.RegTokenUpdate(ctx, "abcd", RegTokenOptions{ClearUsesAllowed: true, Token: "ignored"})
	require.NoError(t, err)
	_, err = c.RegTokenDelete(ctx, "abcd")
	require.NoError(t, err)

	reqs := *recorded
	assert.Equal(t, "valid=true", reqs[0].Query)
	assert.Equal(t, "", reqs[1].Query)
	assert.Equal(t, "/_synapse/admin/v1/registration_tokens/abcd", reqs[2].Path)
	assert.Equal(t, "/_synapse/admin/v1/registration_tokens/new", reqs[3].Path)
	assert.Equal(t, map[string]any{"length": float64(16), "uses_allowed": float64(5)}, reqs[3].Body)
	assert.Equal(t, http.MethodPut, reqs[4].Method)
	assert.Equal(t, map[string]any{"uses_allowed": nil}, reqs[4].Body)
	assert.Equal(t, http.MethodDelete, reqs[5].Method)
}

func TestRaw(t *testing.T) {
	c, recorded := fakeSynapse(t, nil)
	ctx := context.Background()

	_, err := c.Raw(ctx, "get", "v2/users/%40alice%3Aexample.org", map[string]any{"ignored": true})
	require.NoError(t, err)
	_, err = c.Raw(ctx, "post", "v1/rooms/%21abc%3Aexample.org/make_room_admin", map[string]any{"user_id": "@a:b"})
	require.NoError(t, err)

	reqs := *recorded
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/_synapse/admin/v2/users/%40alice%3Aexample.org", reqs[0].Path)
	assert.Nil(t, reqs[0].Body)
	assert.Equal(t, http.MethodPost, reqs[1].Method)
	assert.Equal(t, map[string]any{"user_id": "@a:b"}, reqs[1].Body)
}

func TestServerVersion(t *testing.T) {
	c, _ := fakeSynapse(t, func(*http.Request) string { return `{"server_version":"1.98.0"}` })
	resp, err := c.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"server_version": "1.98.0"}, resp)
}
