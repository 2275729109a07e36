// Package identifier validates the Matrix identifiers synadm accepts on the
// command line and completes bare user localparts into full user IDs.
package identifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

var (
	mxidPattern      = regexp.MustCompile(`^@[-./=\w]+:[-\[\].:\w]+$`)
	localpartPattern = regexp.MustCompile(`^@?[-./=\w]+:?$`)
)

// HomeserverResolver looks up the server name of the local homeserver.
type HomeserverResolver interface {
	HomeserverName(ctx context.Context) (string, error)
}

// IsMXID reports whether s is a fully qualified user ID (@local:server).
func IsMXID(s string) bool {
	return mxidPattern.MatchString(s)
}

// GenerateMXID returns input unchanged when it is already a user ID. A bare
// localpart ("alice", "@alice", "alice:") is completed with the server name
// from resolver. Anything else is a usage error.
func GenerateMXID(ctx context.Context, input string, resolver HomeserverResolver) (string, error) {
	switch {
	case IsMXID(input):
		return input, nil
	case localpartPattern.MatchString(input):
		localpart := strings.NewReplacer("@", "", ":", "").Replace(input)
		server, err := resolver.HomeserverName(ctx)
		if err != nil {
			return "", errors.FromRequest("Homeserver name could not be fetched", err)
		}
		return "@" + localpart + ":" + server, nil
	default:
		return "", errors.NewUsageError(fmt.Sprintf("%q is neither a Matrix user ID nor a localpart", input))
	}
}

// ParseRoomID checks that s looks like a room ID: a '!' sigil, a non-empty
// opaque part and, if a ":server" suffix is present, a non-empty server.
// Newer room versions drop the suffix, so it is not required.
func ParseRoomID(s string) (string, error) {
	if s == "" {
		return "", errors.NewUsageError("room ID is empty")
	}
	if s[0] != '!' {
		return "", errors.NewUsageError(fmt.Sprintf("room ID must start with '!': %q", s))
	}
	opaque, server, hasServer := strings.Cut(s[1:], ":")
	if opaque == "" {
		return "", errors.NewUsageError(fmt.Sprintf("room ID has empty local part: %q", s))
	}
	if hasServer && server == "" {
		return "", errors.NewUsageError(fmt.Sprintf("room ID has empty server name: %q", s))
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", errors.NewUsageError(fmt.Sprintf("room ID contains whitespace: %q", s))
	}
	return s, nil
}

// ParseServerName checks that s can be a server name, e.g. "example.org"
// or "matrix.example.org:8448".
func ParseServerName(s string) (string, error) {
	if s == "" {
		return "", errors.NewUsageError("server name is empty")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune("@!#$/", r) {
			return "", errors.NewUsageError(fmt.Sprintf("invalid character %q in server name %q", r, s))
		}
	}
	return s, nil
}
