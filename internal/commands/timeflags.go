package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

// dateLayouts are the accepted date and time formats, in local time.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// dateFormatsHelp lists dateLayouts for flag help texts.
const dateFormatsHelp = "YYYY-MM-DD, YYYY-MM-DDTHH:MM:SS or 'YYYY-MM-DD HH:MM:SS'"

// parseDate parses s in one of dateLayouts as local time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewUsageError(fmt.Sprintf("invalid date %q, use %s", s, dateFormatsHelp))
}

// beforeFlags are the three ways of naming a point in time: days ago, a
// date, or a unix timestamp in milliseconds.
type beforeFlags struct {
	days int
	date string
	ts   int64
}

func (b *beforeFlags) register(cmd *cobra.Command, what string) {
	cmd.Flags().IntVarP(&b.days, "before-days", "d", 0, what+" before this number of days ago")
	cmd.Flags().StringVar(&b.date, "before", "", what+" before this point in time ("+dateFormatsHelp+")")
	cmd.Flags().Int64Var(&b.ts, "before-ts", 0, what+" before this unix timestamp in ms")
	cmd.MarkFlagsMutuallyExclusive("before-days", "before", "before-ts")
}

func (b *beforeFlags) given(cmd *cobra.Command) bool {
	f := cmd.Flags()
	return f.Changed("before-days") || f.Changed("before") || f.Changed("before-ts")
}

// timestamp returns the selected point in time in milliseconds.
func (b *beforeFlags) timestamp(cmd *cobra.Command, now time.Time) (int64, error) {
	f := cmd.Flags()
	switch {
	case f.Changed("before-days"):
		if b.days < 0 {
			return 0, errors.NewUsageError("--before-days must not be negative")
		}
		return now.Add(-time.Duration(b.days) * 24 * time.Hour).UnixMilli(), nil
	case f.Changed("before"):
		t, err := parseDate(b.date)
		if err != nil {
			return 0, err
		}
		return t.UnixMilli(), nil
	case f.Changed("before-ts"):
		return b.ts, nil
	default:
		return 0, errors.NewUsageError("one of --before-days, --before or --before-ts is required")
	}
}

// formatMillis renders a unix timestamp in ms as local date and time.
func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
