package commands

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-02-01", time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local)},
		{"2024-02-01T13:14:15", time.Date(2024, 2, 1, 13, 14, 15, 0, time.Local)},
		{"2024-02-01 13:14:15", time.Date(2024, 2, 1, 13, 14, 15, 0, time.Local)},
		{" 2024-02-01 ", time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.input)
		require.NoError(t, err, tt.input)
		assert.True(t, tt.want.Equal(got), "%q: got %v, want %v", tt.input, got, tt.want)
	}

	for _, bad := range []string{"", "yesterday", "01.02.2024", "2024-13-01"} {
		_, err := parseDate(bad)
		assert.Equal(t, 2, exitCode(t, err), bad)
	}
}

func parseBefore(t *testing.T, args ...string) (int64, error) {
	t.Helper()
	var b beforeFlags
	cmd := &cobra.Command{Use: "test"}
	b.register(cmd, "act")
	require.NoError(t, cmd.ParseFlags(args))
	return b.timestamp(cmd, testNow)
}

func TestBeforeFlags(t *testing.T) {
	ts, err := parseBefore(t, "-d", "2")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(-48*time.Hour).UnixMilli(), ts)

	ts, err = parseBefore(t, "--before", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local).UnixMilli(), ts)

	ts, err = parseBefore(t, "--before-ts", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), ts)

	_, err = parseBefore(t)
	assert.Equal(t, 2, exitCode(t, err))

	_, err = parseBefore(t, "-d", "-1")
	assert.Equal(t, 2, exitCode(t, err))
}

func TestFormatMillis(t *testing.T) {
	ms := time.Date(2024, 2, 1, 13, 14, 15, 0, time.Local).UnixMilli()
	assert.Equal(t, "2024-02-01 13:14:15", formatMillis(ms))
}
