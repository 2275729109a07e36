package commands

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client/synapse"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/identifier"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/output"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/progress"
)

// recipientPreview is how many recipients are listed before asking.
const recipientPreview = 10

// NoticeCommand creates the notice command group.
func NoticeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notice",
		Short: "Send server notices to local users",
	}
	cmd.AddCommand(noticeSendCommand(app))
	return cmd
}

func noticeSendCommand(app *App) *cobra.Command {
	var fromFile, fromArgument bool
	var pageSize int

	cmd := &cobra.Command{
		Use:   "send TO PLAIN [FORMATTED]",
		Short: "Send a server notice to one or many local users",
		Long: `Send a server notice to local users.

TO is either a user ID (e.g. '@abc:example.org') or a regular expression
matched against the start of every local user ID (e.g. '.*' for all users).
PLAIN is the plain text content of the notice, FORMATTED its HTML version;
PLAIN is used when FORMATTED is missing. With --from-file both are read
from the named files instead.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pageSize <= 0 {
				return errors.NewUsageError("--paginate must be a positive number")
			}
			notice, err := noticeContent(args[1:], fromFile && !fromArgument)
			if err != nil {
				return err
			}
			return runNoticeSend(cmd, app, args[0], notice, pageSize)
		},
	}

	cmd.Flags().BoolVarP(&fromFile, "from-file", "f", false, "read PLAIN and FORMATTED from files")
	cmd.Flags().BoolVarP(&fromArgument, "from-argument", "a", false, "take PLAIN and FORMATTED as given (default)")
	cmd.Flags().IntVar(&pageSize, "paginate", 100, "how many users are fetched from the server at once")
	cmd.MarkFlagsMutuallyExclusive("from-file", "from-argument")

	return cmd
}

func noticeContent(args []string, fromFile bool) (synapse.Notice, error) {
	if !fromFile {
		n := synapse.Notice{Plain: args[0]}
		if len(args) > 1 {
			n.Formatted = args[1]
		}
		return n, nil
	}
	read := func(path string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.NewUsageError(fmt.Sprintf("notice content could not be read: %v", err))
		}
		return string(data), nil
	}
	var n synapse.Notice
	var err error
	if n.Plain, err = read(args[0]); err != nil {
		return n, err
	}
	if len(args) > 1 {
		if n.Formatted, err = read(args[1]); err != nil {
			return n, err
		}
	}
	return n, nil
}

func runNoticeSend(cmd *cobra.Command, app *App, to string, notice synapse.Notice, pageSize int) error {
	ctx := cmd.Context()
	c, err := app.adminClient()
	if err != nil {
		return err
	}

	var recipients []string
	if identifier.IsMXID(to) {
		recipients = []string{to}
	} else {
		pattern, err := regexp.Compile("^(?:" + to + ")")
		if err != nil {
			return errors.NewUsageError(fmt.Sprintf("%q is neither a user ID nor a valid regular expression: %v", to, err))
		}
		if recipients, err = c.MatchingUsers(ctx, pattern, pageSize); err != nil {
			return errors.FromRequest("Users could not be fetched", err)
		}
	}
	if len(recipients) == 0 {
		app.printer.Println("No local users match '%s'.", to)
		return nil
	}

	params := map[string]any{"to": to, "recipients": len(recipients)}
	if !app.batch {
		app.printer.Println("Recipients (%d):", len(recipients))
		for i, r := range recipients {
			if i == recipientPreview {
				app.printer.Println("  ... and %d more", len(recipients)-recipientPreview)
				break
			}
			app.printer.Println("  %s", r)
		}
		app.printer.Println("Plain text:\n%s", notice.Plain)
		if notice.Formatted != "" && notice.Formatted != notice.Plain {
			app.printer.Println("Formatted:\n%s", notice.Formatted)
		}
	}
	sure, err := app.confirm(fmt.Sprintf("Are you sure you want to send this notice to %d users? (y/N)", len(recipients)))
	if err != nil {
		return err
	}
	if !sure {
		app.aborted(cmd, "notice_send", params)
		return nil
	}

	indicator := progress.NewIndicator(app.errOut, app.progressMode())
	const op = "Sending server notices"
	results := make([]any, 0, len(recipients))
	failed := ""
	err = app.track(cmd, "notice_send", params, func() error {
		indicator.Start(op, len(recipients))
		for i, userID := range recipients {
			resp, err := c.NoticeSend(ctx, userID, notice)
			if err != nil {
				failed = fmt.Sprintf("Server notice to %s could not be sent (%d of %d sent)", userID, i, len(recipients))
				return err
			}
			eventID, _ := field(resp, "event_id")
			results = append(results, map[string]any{"user_id": userID, "event_id": eventID})
			if err := indicator.Update(op, i+1, len(recipients)); err != nil {
				app.logger.Debug("progress update failed: " + err.Error())
			}
		}
		return indicator.Complete(op, len(recipients))
	})
	if err != nil {
		if failed == "" {
			failed = "Server notices could not be sent"
		}
		return errors.FromRequest(failed, err)
	}
	return app.printer.Print(results)
}

// progressMode picks a progress bar for people and JSON events for
// scripts reading JSON output.
func (a *App) progressMode() string {
	switch {
	case a.printer.Format() == output.FormatJSON, a.printer.Format() == output.FormatMinified:
		return progress.ModeJSON
	case a.batch:
		return progress.ModeOff
	default:
		return progress.ModeBar
	}
}
