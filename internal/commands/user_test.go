package commands

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/prompt"
)

const aliceDetails = "/_synapse/admin/v2/users/@alice:example.org"

func TestUserListHuman(t *testing.T) {
	hs := newHomeserver(t, map[string]any{
		"GET /_synapse/admin/v2/users": map[string]any{
			"users": []any{
				map[string]any{"name": "@alice:example.org", "admin": true},
				map[string]any{"name": "@bob:example.org", "admin": false},
			},
			"total":      2,
			"next_token": "2",
		},
	})

	res := runCLI(t, writeConfig(t, hs.URL), nil, "-o", "human", "user", "list", "-l", "2", "-G", "-n", "ali")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Total users on homeserver (excluding deactivated): 2")
	assert.Contains(t, res.stdout, "@bob:example.org")
	assert.Contains(t, res.stdout, "use '--from 2' to go to next page")

	reqs := hs.find(http.MethodGet, "/_synapse/admin/v2/users")
	require.Len(t, reqs, 1)
	assert.Equal(t, "2", reqs[0].Query.Get("limit"))
	assert.Equal(t, "false", reqs[0].Query.Get("guests"))
	assert.Equal(t, "ali", reqs[0].Query.Get("name"))
}

func TestUserListExclusiveFlags(t *testing.T) {
	hs := newHomeserver(t, nil)

	res := runCLI(t, writeConfig(t, hs.URL), nil, "user", "list", "-n", "a", "-i", "b")

	assert.Equal(t, 2, exitCode(t, res.err))
	assert.Empty(t, hs.find(http.MethodGet, "/_synapse/admin/v2/users"))
}

func TestUserDetailsCompletesLocalpart(t *testing.T) {
	hs := newHomeserver(t, map[string]any{
		"GET " + aliceDetails: map[string]any{"name": "@alice:example.org"},
	})

	res := runCLI(t, writeConfig(t, hs.URL), nil, "user", "details", "alice")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "@alice:example.org")
}

func TestUserDetailsNotFound(t *testing.T) {
	hs := newHomeserver(t, nil)

	res := runCLI(t, writeConfig(t, hs.URL), nil, "user", "details", "@nobody:example.org")

	assert.Equal(t, 1, exitCode(t, res.err))
	assert.Contains(t, res.err.Error(), "User details could not be fetched")
}

func TestUserSearchQueriesBothCases(t *testing.T) {
	hs := newHomeserver(t, map[string]any{
		"GET /_synapse/admin/v2/users": map[string]any{"users": []any{}, "total": 0},
	})

	res := runCLI(t, writeConfig(t, hs.URL), nil, "user", "search", "aLIce")

	require.NoError(t, res.err)
	reqs := hs.find(http.MethodGet, "/_synapse/admin/v2/users")
	require.Len(t, reqs, 2)
	assert.Equal(t, "alice", reqs[0].Query.Get("name"))
	assert.Equal(t, "Alice", reqs[1].Query.Get("name"))
	assert.Equal(t, "true", reqs[0].Query.Get("deactivated"))
}

func TestUserMembershipHuman(t *testing.T) {
	hs := newHomeserver(t, map[string]any{
		"GET /_synapse/admin/v1/users/@alice:example.org/joined_rooms": map[string]any{
			"joined_rooms": []string{"!a:example.org", "!b:example.org"}, "total": 2,
		},
		"GET /_synapse/admin/v1/users/@bob:example.org/joined_rooms": map[string]any{
			"joined_rooms": []string{}, "total": 0,
		},
	})
	path := writeConfig(t, hs.URL)

	res := runCLI(t, path, nil, "-o", "human", "user", "membership", "alice")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "User is member of 2 rooms.")
	assert.Contains(t, res.stdout, "!b:example.org")

	res = runCLI(t, path, nil, "-o", "human", "user", "membership", "@bob:example.org")
	require.NoError(t, res.err)
	assert.Equal(t, "User is member of 0 rooms.", strings.TrimSpace(res.stdout))
}

func deactivateRoutes() map[string]any {
	return map[string]any{
		"GET " + aliceDetails: map[string]any{"name": "@alice:example.org"},
		"GET /_synapse/admin/v1/users/@alice:example.org/joined_rooms": map[string]any{
			"joined_rooms": []string{"!a:example.org"}, "total": 1,
		},
		"POST /_synapse/admin/v1/deactivate/@alice:example.org": map[string]any{"id_server_unbind_result": "success"},
	}
}

func TestUserDeactivateAbort(t *testing.T) {
	hs := newHomeserver(t, deactivateRoutes())
	answers := prompt.NewScripted("n")

	res := runCLI(t, writeConfig(t, hs.URL), answers, "user", "deactivate", "alice")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Abort.")
	assert.Equal(t, []string{"Are you sure you want to deactivate this user? (y/N)"}, answers.Questions)
	assert.Empty(t, hs.find(http.MethodPost, "/_synapse/admin/v1/deactivate/@alice:example.org"))
}

func TestUserGDPREraseConfirmed(t *testing.T) {
	hs := newHomeserver(t, deactivateRoutes())
	answers := prompt.NewScripted("y")

	res := runCLI(t, writeConfig(t, hs.URL), answers, "-o", "human", "user", "deactivate", "-e", "alice")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "User is member of 1 rooms.")
	assert.Contains(t, res.stdout, "User successfully gdpr-erased.")
	reqs := hs.find(http.MethodPost, "/_synapse/admin/v1/deactivate/@alice:example.org")
	require.Len(t, reqs, 1)
	assert.Equal(t, true, reqs[0].Body["erase"])
}

func TestUserPasswordBatchNeedsPassword(t *testing.T) {
	hs := newHomeserver(t, nil)

	res := runCLI(t, writeConfig(t, hs.URL), nil, "--batch", "user", "password", "alice")

	assert.Equal(t, 2, exitCode(t, res.err))
	assert.Contains(t, res.err.Error(), "Password prompt not available in non-interactive mode. Use -p.")
}

func TestUserPasswordPrompted(t *testing.T) {
	hs := newHomeserver(t, map[string]any{
		"POST /_synapse/admin/v1/reset_password/@alice:example.org": map[string]any{},
	})
	answers := prompt.NewScripted("hunter2")

	res := runCLI(t, writeConfig(t, hs.URL), answers, "-o", "human", "user", "password", "-n", "alice")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Password reset successfully.")
	reqs := hs.find(http.MethodPost, "/_synapse/admin/v1/reset_password/@alice:example.org")
	require.Len(t, reqs, 1)
	assert.Equal(t, "hunter2", reqs[0].Body["new_password"])
	assert.Equal(t, false, reqs[0].Body["logout_devices"])
}

func TestUserModifyNeedsAnOption(t *testing.T) {
	hs := newHomeserver(t, nil)

	res := runCLI(t, writeConfig(t, hs.URL), nil, "user", "modify", "alice")

	assert.Equal(t, 2, exitCode(t, res.err))
}

func TestUserModifySanityChecks(t *testing.T) {
	hs := newHomeserver(t, nil)
	path := writeConfig(t, hs.URL)

	for name, args := range map[string][]string{
		"activate without password": {"--activate"},
		"deactivate with password":  {"--deactivate", "-P", "secret"},
		"both password options":     {"-p", "-P", "secret"},
		"malformed threepid":        {"-t", "alice@example.org"},
	} {
		t.Run(name, func(t *testing.T) {
			res := runCLI(t, path, nil, append([]string{"--batch", "user", "modify", "alice"}, args...)...)
			assert.Equal(t, 2, exitCode(t, res.err))
		})
	}
	assert.Empty(t, hs.find(http.MethodPut, aliceDetails))
}

func TestUserModifyCreatesMissingUser(t *testing.T) {
	hs := newHomeserver(t, map[string]any{
		"PUT " + aliceDetails: map[string]any{"name": "@alice:example.org", "displayname": "Alice"},
	})

	res := runCLI(t, writeConfig(t, hs.URL), nil, "--batch", "user", "modify", "alice",
		"-n", "Alice", "-P", "secret", "-t", "email:alice@example.org", "-u")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "User does not exist yet, it will be created.")
	assert.Contains(t, res.stdout, "Password will be set as provided on command line.")

	reqs := hs.find(http.MethodPut, aliceDetails)
	require.Len(t, reqs, 1)
	body := reqs[0].Body
	assert.Equal(t, "Alice", body["displayname"])
	assert.Equal(t, "secret", body["password"])
	assert.Equal(t, false, body["admin"])
	assert.Equal(t, []any{map[string]any{"medium": "email", "address": "alice@example.org"}}, body["threepids"])
	assert.NotContains(t, body, "deactivated")
}

func TestUserWhois(t *testing.T) {
	hs := newHomeserver(t, map[string]any{
		"GET /_synapse/admin/v1/whois/@alice:example.org": map[string]any{"user_id": "@alice:example.org", "devices": map[string]any{}},
	})

	res := runCLI(t, writeConfig(t, hs.URL), nil, "user", "whois", "@alice:example.org")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"user_id": "@alice:example.org"`)
}
