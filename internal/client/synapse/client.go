// Package synapse provides the API client for the Synapse admin API.
//
// Purpose:
//
//	One method per admin endpoint synadm uses. Each method builds the
//	path, query and body for its endpoint and hands the request to the
//	shared request helper; responses are returned as decoded JSON so that
//	commands can render them unchanged.
//
// Dependencies:
//   - internal/client: request helper, typed API errors
//   - internal/client/synapse/types: request option types
package synapse

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client"
)

// Client provides access to the Synapse admin API.
type Client struct {
	api *client.Client
}

// NewClient creates a client for the admin API prefix described by cfg.
func NewClient(cfg client.Config) (*Client, error) {
	api, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// ServerVersion returns the Synapse version.
func (c *Client) ServerVersion(ctx context.Context) (any, error) {
	return c.api.Get(ctx, "v1/server_version", nil)
}

// UserList lists and searches users.
func (c *Client) UserList(ctx context.Context, opts UserListOptions) (any, error) {
	q := url.Values{}
	q.Set("from", strconv.Itoa(opts.From))
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Guests != nil {
		q.Set("guests", strconv.FormatBool(*opts.Guests))
	}
	if opts.Deactivated {
		q.Set("deactivated", "true")
	}
	client.SetNonEmpty(q, "name", opts.Name)
	client.SetNonEmpty(q, "user_id", opts.UserID)
	return c.api.Get(ctx, "v2/users", q)
}

// UserDetails returns the account of userID.
func (c *Client) UserDetails(ctx context.Context, userID string) (any, error) {
	return c.api.Get(ctx, "v2/users/"+client.PathEscape(userID), nil)
}

// UserMembership lists the rooms userID is joined to.
func (c *Client) UserMembership(ctx context.Context, userID string) (any, error) {
	return c.api.Get(ctx, "v1/users/"+client.PathEscape(userID)+"/joined_rooms", nil)
}

// UserDeactivate deactivates userID, GDPR-erasing it when erase is set.
func (c *Client) UserDeactivate(ctx context.Context, userID string, erase bool) (any, error) {
	return c.api.Post(ctx, "v1/deactivate/"+client.PathEscape(userID), nil, map[string]any{"erase": erase})
}

// UserPassword sets a new password. Devices are logged out unless noLogout.
func (c *Client) UserPassword(ctx context.Context, userID, password string, noLogout bool) (any, error) {
	body := map[string]any{"new_password": password}
	if noLogout {
		body["logout_devices"] = false
	}
	return c.api.Post(ctx, "v1/reset_password/"+client.PathEscape(userID), nil, body)
}

// UserModify creates or updates a local user.
func (c *Client) UserModify(ctx context.Context, userID string, mod UserModification) (any, error) {
	return c.api.Put(ctx, "v2/users/"+client.PathEscape(userID), mod.Body())
}

// UserWhois returns session information for userID.
func (c *Client) UserWhois(ctx context.Context, userID string) (any, error) {
	return c.api.Get(ctx, "v1/whois/"+client.PathEscape(userID), nil)
}

// RoomList lists and searches rooms.
func (c *Client) RoomList(ctx context.Context, opts RoomListOptions) (any, error) {
	q := url.Values{}
	q.Set("from", strconv.Itoa(opts.From))
	q.Set("limit", strconv.Itoa(opts.Limit))
	client.SetNonEmpty(q, "search_term", opts.Name)
	client.SetNonEmpty(q, "order_by", opts.OrderBy)
	if opts.Reverse {
		q.Set("dir", "b")
	}
	return c.api.Get(ctx, "v1/rooms", q)
}

// RoomDetails returns details about roomID.
func (c *Client) RoomDetails(ctx context.Context, roomID string) (any, error) {
	return c.api.Get(ctx, "v1/rooms/"+client.PathEscape(roomID), nil)
}

// RoomMembers lists the current members of roomID.
func (c *Client) RoomMembers(ctx context.Context, roomID string) (any, error) {
	return c.api.Get(ctx, "v1/rooms/"+client.PathEscape(roomID)+"/members", nil)
}

// RoomDelete shuts down roomID and optionally purges it.
func (c *Client) RoomDelete(ctx context.Context, roomID string, opts RoomDeleteOptions) (any, error) {
	return c.api.Delete(ctx, "v1/rooms/"+client.PathEscape(roomID), opts.Body())
}

// RoomMediaList lists media known in an unencrypted room.
func (c *Client) RoomMediaList(ctx context.Context, roomID string) (any, error) {
	return c.api.Get(ctx, "v1/room/"+client.PathEscape(roomID)+"/media", nil)
}

// MediaQuarantine quarantines a single piece of local or remote media.
func (c *Client) MediaQuarantine(ctx context.Context, serverName, mediaID string) (any, error) {
	return c.api.Post(ctx, "v1/media/quarantine/"+client.PathEscape(serverName, mediaID), nil, map[string]any{})
}

// RoomMediaQuarantine quarantines all media in roomID.
func (c *Client) RoomMediaQuarantine(ctx context.Context, roomID string) (any, error) {
	return c.api.Post(ctx, "v1/room/"+client.PathEscape(roomID)+"/media/quarantine", nil, map[string]any{})
}

// UserMediaQuarantine quarantines all media uploaded by userID.
func (c *Client) UserMediaQuarantine(ctx context.Context, userID string) (any, error) {
	return c.api.Post(ctx, "v1/user/"+client.PathEscape(userID)+"/media/quarantine", nil, map[string]any{})
}

// MediaProtect protects mediaID from quarantine.
func (c *Client) MediaProtect(ctx context.Context, mediaID string) (any, error) {
	return c.api.Post(ctx, "v1/media/protect/"+client.PathEscape(mediaID), nil, map[string]any{})
}

// MediaDelete deletes a single piece of local media.
func (c *Client) MediaDelete(ctx context.Context, serverName, mediaID string) (any, error) {
	return c.api.Delete(ctx, "v1/media/"+client.PathEscape(serverName, mediaID), nil)
}

// MediaDeleteByDateOrSize deletes local media older than BeforeTS and,
// when SizeGT is set, larger than SizeGT bytes.
func (c *Client) MediaDeleteByDateOrSize(ctx context.Context, serverName string, opts MediaDeleteOptions) (any, error) {
	q := url.Values{}
	q.Set("before_ts", strconv.FormatInt(opts.BeforeTS, 10))
	if opts.SizeGT > 0 {
		q.Set("size_gt", strconv.FormatInt(opts.SizeGT, 10))
	}
	if !opts.KeepProfiles {
		q.Set("keep_profiles", "false")
	}
	return c.api.Post(ctx, "v1/media/"+client.PathEscape(serverName)+"/delete", q, map[string]any{})
}

// PurgeRemoteMedia purges cached remote media older than beforeTS.
func (c *Client) PurgeRemoteMedia(ctx context.Context, beforeTS int64) (any, error) {
	q := url.Values{}
	q.Set("before_ts", strconv.FormatInt(beforeTS, 10))
	return c.api.Post(ctx, "v1/purge_media_cache", q, map[string]any{})
}

// PurgeHistory starts purging events of roomID.
func (c *Client) PurgeHistory(ctx context.Context, roomID string, opts PurgeHistoryOptions) (any, error) {
	return c.api.Post(ctx, "v1/purge_history/"+client.PathEscape(roomID), nil, opts.Body())
}

// PurgeHistoryStatus returns the status of a purge started by PurgeHistory.
func (c *Client) PurgeHistoryStatus(ctx context.Context, purgeID string) (any, error) {
	return c.api.Get(ctx, "v1/purge_history_status/"+client.PathEscape(purgeID), nil)
}

// GroupDelete deletes a local group (community).
func (c *Client) GroupDelete(ctx context.Context, groupID string) (any, error) {
	return c.api.Post(ctx, "v1/delete_group/"+client.PathEscape(groupID), nil, map[string]any{})
}

// NoticeSend sends a server notice to a single local user.
func (c *Client) NoticeSend(ctx context.Context, userID string, notice Notice) (any, error) {
	return c.api.Post(ctx, "v1/send_server_notice", nil, map[string]any{
		"user_id": userID,
		"content": notice.Content(),
	})
}

// MatchingUsers pages through all non-deactivated local users, pageSize at
// a time, and returns the IDs matched by pattern at their start.
func (c *Client) MatchingUsers(ctx context.Context, pattern *regexp.Regexp, pageSize int) ([]string, error) {
	var matched []string
	from := 0
	for {
		resp, err := c.UserList(ctx, UserListOptions{From: from, Limit: pageSize, Guests: boolPtr(false)})
		if err != nil {
			return nil, err
		}
		page, _ := resp.(map[string]any)
		users, _ := page["users"].([]any)
		for _, u := range users {
			user, _ := u.(map[string]any)
			name, _ := user["name"].(string)
			if name != "" && pattern.MatchString(name) {
				matched = append(matched, name)
			}
		}
		next, ok := nextToken(page["next_token"])
		if !ok || len(users) == 0 || next <= from {
			return matched, nil
		}
		from = next
	}
}

// RegTokenList lists registration tokens; valid filters by validity when set.
func (c *Client) RegTokenList(ctx context.Context, valid *bool) (any, error) {
	var q url.Values
	if valid != nil {
		q = url.Values{"valid": {strconv.FormatBool(*valid)}}
	}
	return c.api.Get(ctx, "v1/registration_tokens", q)
}

// RegTokenDetails returns one registration token.
func (c *Client) RegTokenDetails(ctx context.Context, token string) (any, error) {
	return c.api.Get(ctx, "v1/registration_tokens/"+client.PathEscape(token), nil)
}

// RegTokenNew creates a registration token.
func (c *Client) RegTokenNew(ctx context.Context, opts RegTokenOptions) (any, error) {
	return c.api.Post(ctx, "v1/registration_tokens/new", nil, opts.Body())
}

// RegTokenUpdate changes the limits of a registration token.
func (c *Client) RegTokenUpdate(ctx context.Context, token string, opts RegTokenOptions) (any, error) {
	opts.Token = ""
	opts.Length = 0
	return c.api.Put(ctx, "v1/registration_tokens/"+client.PathEscape(token), opts.Body())
}

// RegTokenDelete deletes a registration token.
func (c *Client) RegTokenDelete(ctx context.Context, token string) (any, error) {
	return c.api.Delete(ctx, "v1/registration_tokens/"+client.PathEscape(token), nil)
}

// Raw sends an arbitrary request below the admin prefix. endpoint is used
// verbatim, so the caller URL-encodes it. body is only sent for methods
// other than GET.
func (c *Client) Raw(ctx context.Context, method, endpoint string, body any) (any, error) {
	method = strings.ToUpper(method)
	if method == http.MethodGet {
		body = nil
	}
	return c.api.Do(ctx, client.Request{Method: method, Path: endpoint, Body: body})
}

func boolPtr(b bool) *bool { return &b }

// nextToken reads a pagination token, which Synapse sends as a string.
func nextToken(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}
