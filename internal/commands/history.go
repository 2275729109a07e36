package commands

import (
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client/synapse"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

// HistoryCommand creates the history command group.
func HistoryCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Purge historic events from the Synapse database",
	}

	cmd.AddCommand(historyPurgeCommand(app))
	cmd.AddCommand(historyPurgeStatusCommand(app))

	return cmd
}

func historyPurgeCommand(app *App) *cobra.Command {
	var eventID string
	var before beforeFlags
	var deleteLocal bool

	cmd := &cobra.Command{
		Use:   "purge ROOM_ID",
		Short: "Purge room events before a point in time or before an event ID",
		Long: `Purge room events before a point in time or before an event ID,
reclaiming disk space. Depending on the amount of history this may take
several minutes; users can not paginate back beyond the purge point
meanwhile. Synapse always keeps the last message and the room state.

Events sent by local users are kept unless --delete-local is given, as
they may be the only copies in existence.

The purge runs in the background; poll it with 'synadm history
purge-status PURGE_ID'.`,
		Args: roomArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			roomID := args[0]
			opts := synapse.PurgeHistoryOptions{EventID: eventID, DeleteLocal: deleteLocal}
			if eventID == "" {
				ts, err := before.timestamp(cmd, app.now())
				if err != nil {
					return err
				}
				opts.BeforeTS = ts
			}

			params := map[string]any{
				"room_id":      roomID,
				"event_id":     opts.EventID,
				"before_ts":    opts.BeforeTS,
				"delete_local": deleteLocal,
			}
			sure, err := app.confirm("Are you sure you want to purge room history? (y/N)")
			if err != nil {
				return err
			}
			if !sure {
				app.aborted(cmd, "history_purge", params)
				return nil
			}

			c, err := app.adminClient()
			if err != nil {
				return err
			}
			var resp any
			err = app.track(cmd, "history_purge", params, func() error {
				var reqErr error
				resp, reqErr = c.PurgeHistory(ctx, roomID, opts)
				return reqErr
			})
			if err != nil {
				return errors.FromRequest("History could not be purged", err)
			}
			if purgeID, ok := field(resp, "purge_id"); ok && !app.batch {
				app.printer.Println("Use 'synadm history purge-status %v' to get status of purge job.", purgeID)
			}
			return app.printer.Print(resp)
		},
	}

	cmd.Flags().StringVarP(&eventID, "before-event-id", "i", "",
		"purge all history before this event ID (quote it, event IDs contain '$')")
	before.register(cmd, "purge all history")
	cmd.Flags().BoolVar(&deleteLocal, "delete-local", false, "also remove events sent by local users")
	cmd.MarkFlagsMutuallyExclusive("before-event-id", "before-days")
	cmd.MarkFlagsMutuallyExclusive("before-event-id", "before")
	cmd.MarkFlagsMutuallyExclusive("before-event-id", "before-ts")
	cmd.MarkFlagsOneRequired("before-event-id", "before-days", "before", "before-ts")

	return cmd
}

func historyPurgeStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-status PURGE_ID",
		Short: "View the status of a recent history purge",
		Long:  "View the status of a recent history purge: active, complete or failed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			status, err := c.PurgeHistoryStatus(cmd.Context(), args[0])
			if err != nil {
				return errors.FromRequest("History purge status could not be fetched", err)
			}
			if s, ok := field(status, "status"); ok && !app.batch {
				app.printer.Println("Status of history purge is %v.", s)
				return nil
			}
			return app.printer.Print(status)
		},
	}
}
