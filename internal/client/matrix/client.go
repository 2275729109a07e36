// Package matrix provides the client for the Matrix client-server API and
// the lookup of the homeserver name.
//
// Dependencies:
//   - internal/client: request helper, typed API errors
//   - github.com/miekg/dns: SRV lookup of the federation endpoint
package matrix

import (
	"context"
	"net/http"
	"strings"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client"
)

// LoginDeviceName is the display name of devices created by Login.
const LoginDeviceName = "synadm matrix login command"

// Client provides access to the Matrix client-server API.
type Client struct {
	api *client.Client
}

// NewClient creates a client for the client-server API prefix described by cfg.
func NewClient(cfg client.Config) (*Client, error) {
	api, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// Login logs userID in with a password and returns the new session,
// including its access token. No token is sent with the request.
func (c *Client) Login(ctx context.Context, userID, password string) (any, error) {
	return c.api.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "client/v3/login",
		Body: map[string]any{
			"type": "m.login.password",
			"identifier": map[string]any{
				"type": "m.id.user",
				"user": userID,
			},
			"password":                    password,
			"initial_device_display_name": LoginDeviceName,
		},
		NoAuth: true,
	})
}

// Raw sends an arbitrary request below the client-server prefix. token
// replaces the configured token when non-empty. GET requests carry no body.
func (c *Client) Raw(ctx context.Context, method, endpoint string, body any, token string) (any, error) {
	method = strings.ToUpper(method)
	if method == http.MethodGet {
		body = nil
	}
	return c.api.Do(ctx, client.Request{Method: method, Path: endpoint, Body: body, Token: token})
}
