package identifier

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

type staticResolver struct {
	name  string
	err   error
	calls int
}

func (r *staticResolver) HomeserverName(context.Context) (string, error) {
	r.calls++
	return r.name, r.err
}

func TestGenerateMXID(t *testing.T) {
	tests := []struct {
		input     string
		want      string
		wantCalls int
	}{
		{"@alice:example.org", "@alice:example.org", 0},
		{"@alice:[::1]:8448", "@alice:[::1]:8448", 0},
		{"alice", "@alice:example.org", 1},
		{"@alice", "@alice:example.org", 1},
		{"alice:", "@alice:example.org", 1},
		{"a.l-i_c=e/1", "@a.l-i_c=e/1:example.org", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := &staticResolver{name: "example.org"}
			got, err := GenerateMXID(context.Background(), tt.input, r)
			if err != nil {
				t.Fatalf("GenerateMXID(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("GenerateMXID(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if r.calls != tt.wantCalls {
				t.Errorf("resolver called %d times, want %d", r.calls, tt.wantCalls)
			}
		})
	}
}

func TestGenerateMXIDInvalid(t *testing.T) {
	for _, input := range []string{"", "al ice", "#room:example.org", "!room:example.org", "@:example.org"} {
		_, err := GenerateMXID(context.Background(), input, &staticResolver{name: "example.org"})
		var cliErr *errors.CLIError
		if !stderrors.As(err, &cliErr) {
			t.Fatalf("GenerateMXID(%q) error = %v, want CLIError", input, err)
		}
		if cliErr.ExitCode != 2 {
			t.Errorf("GenerateMXID(%q) exit code = %d, want 2", input, cliErr.ExitCode)
		}
	}
}

func TestGenerateMXIDResolverFailure(t *testing.T) {
	cause := stderrors.New("no SRV record")
	_, err := GenerateMXID(context.Background(), "alice", &staticResolver{err: cause})
	if err == nil {
		t.Fatal("expected error")
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("error %v does not wrap the resolver failure", err)
	}
}

func TestIsMXID(t *testing.T) {
	for _, id := range []string{"@bob:example.org", "@bob.smith=1:matrix.example.org:8448"} {
		if !IsMXID(id) {
			t.Errorf("IsMXID(%q) = false", id)
		}
	}
	for _, id := range []string{"bob", "@bob", "bob:example.org", "@bob:", ".*"} {
		if IsMXID(id) {
			t.Errorf("IsMXID(%q) = true", id)
		}
	}
}

func TestParseRoomID(t *testing.T) {
	valid := []string{"!abc:example.org", "!abc:example.org:8448", "!31hneApxJ_1o-63DmFrpeqnkFfWppnzWso1JvH3ogLM"}
	for _, id := range valid {
		if _, err := ParseRoomID(id); err != nil {
			t.Errorf("ParseRoomID(%q) unexpected error: %v", id, err)
		}
	}

	invalid := []string{"", "abc:example.org", "#alias:example.org", "!:example.org", "!abc:", "!abc def:example.org"}
	for _, id := range invalid {
		if _, err := ParseRoomID(id); err == nil {
			t.Errorf("ParseRoomID(%q) expected error", id)
		}
	}
}

func TestParseServerName(t *testing.T) {
	for _, name := range []string{"example.org", "matrix.example.org:8448", "[::1]:8448"} {
		if _, err := ParseServerName(name); err != nil {
			t.Errorf("ParseServerName(%q) unexpected error: %v", name, err)
		}
	}
	for _, name := range []string{"", "exa mple.org", "@example.org", "example.org/path"} {
		if _, err := ParseServerName(name); err == nil {
			t.Errorf("ParseServerName(%q) expected error", name)
		}
	}
}
