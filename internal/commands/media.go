package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client/synapse"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/identifier"
)

// MediaCommand creates the media command group.
func MediaCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage local and remote media",
	}

	cmd.AddCommand(mediaListCommand(app))
	cmd.AddCommand(mediaQuarantineCommand(app))
	cmd.AddCommand(mediaProtectCommand(app))
	cmd.AddCommand(mediaDeleteCommand(app))
	cmd.AddCommand(mediaPurgeCommand(app))

	return cmd
}

func mediaListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list ROOM_ID",
		Short: "List all media in a room",
		Args:  roomArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			media, err := c.RoomMediaList(cmd.Context(), args[0])
			if err != nil {
				return errors.FromRequest("Media list could not be fetched", err)
			}
			return app.printer.Print(media)
		},
	}
}

func mediaQuarantineCommand(app *App) *cobra.Command {
	var mediaID, serverName, roomID, userID string

	cmd := &cobra.Command{
		Use:   "quarantine",
		Short: "Quarantine media in rooms, by users or by media ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch {
			case mediaID != "" && serverName == "":
				return errors.NewUsageError("Server name missing.")
			case serverName != "" && mediaID == "":
				return errors.NewUsageError("Media ID missing.")
			}

			var quarantine func(c *synapse.Client) (any, error)
			params := map[string]any{}
			switch {
			case mediaID != "":
				if _, err := identifier.ParseServerName(serverName); err != nil {
					return err
				}
				params["server_name"], params["media_id"] = serverName, mediaID
				quarantine = func(c *synapse.Client) (any, error) { return c.MediaQuarantine(ctx, serverName, mediaID) }
			case roomID != "":
				if _, err := identifier.ParseRoomID(roomID); err != nil {
					return err
				}
				params["room_id"] = roomID
				quarantine = func(c *synapse.Client) (any, error) { return c.RoomMediaQuarantine(ctx, roomID) }
			default:
				mxid, err := app.mxid(ctx, userID)
				if err != nil {
					return err
				}
				params["user_id"] = mxid
				quarantine = func(c *synapse.Client) (any, error) { return c.UserMediaQuarantine(ctx, mxid) }
			}

			c, err := app.adminClient()
			if err != nil {
				return err
			}
			var resp any
			err = app.track(cmd, "media_quarantine", params, func() error {
				var reqErr error
				resp, reqErr = quarantine(c)
				return reqErr
			})
			if err != nil {
				return errors.FromRequest("Media could not be quarantined", err)
			}
			return app.printer.Print(resp)
		},
	}

	cmd.Flags().StringVarP(&mediaID, "media-id", "i", "", "quarantine the media with this media ID")
	cmd.Flags().StringVarP(&serverName, "server-name", "s", "", "the server name of the media, mandatory with --media-id")
	cmd.Flags().StringVarP(&roomID, "room-id", "r", "", "quarantine all media in the room with this room ID")
	cmd.Flags().StringVarP(&userID, "user-id", "u", "", "quarantine all media uploaded by this user")
	cmd.MarkFlagsOneRequired("media-id", "room-id", "user-id")
	cmd.MarkFlagsMutuallyExclusive("media-id", "room-id", "user-id")

	return cmd
}

func mediaProtectCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "protect MEDIA_ID",
		Short: "Protect specific media from being quarantined",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			resp, err := c.MediaProtect(cmd.Context(), args[0])
			if err != nil {
				return errors.FromRequest("Media could not be protected", err)
			}
			return app.printer.Print(resp)
		},
	}
}

func mediaDeleteCommand(app *App) *cobra.Command {
	var mediaID, serverName string
	var before beforeFlags
	var sizeGT int64
	var keepProfiles, deleteProfiles bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete local media by media ID, or by date and size",
		Long: `Delete local media. Either a single file is deleted by its media ID, or
all local media older than a point in time and, optionally, larger than a
given size. Remote media is purged with 'synadm media purge'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if mediaID == "" && !before.given(cmd) {
				return errors.NewUsageError("either --media-id or one of --before-days, --before, --before-ts is required")
			}
			if mediaID != "" && (before.given(cmd) || cmd.Flags().Changed("size-gt")) {
				return errors.NewUsageError("--media-id can not be combined with date or size options")
			}

			server, err := mediaServerName(ctx, app, serverName)
			if err != nil {
				return err
			}

			if mediaID != "" {
				params := map[string]any{"server_name": server, "media_id": mediaID}
				return app.deleteMedia(cmd, "Are you sure you want to delete this media? (y/N)", params,
					func(c *synapse.Client) (any, error) { return c.MediaDelete(ctx, server, mediaID) })
			}

			ts, err := before.timestamp(cmd, app.now())
			if err != nil {
				return err
			}
			opts := synapse.MediaDeleteOptions{BeforeTS: ts, SizeGT: sizeGT, KeepProfiles: keepProfiles && !deleteProfiles}
			params := map[string]any{
				"server_name":   server,
				"before_ts":     ts,
				"size_gt":       sizeGT,
				"keep_profiles": opts.KeepProfiles,
			}
			question := "Are you sure you want to delete local media older than " + formatMillis(ts) + "? (y/N)"
			return app.deleteMedia(cmd, question, params,
				func(c *synapse.Client) (any, error) { return c.MediaDeleteByDateOrSize(ctx, server, opts) })
		},
	}

	cmd.Flags().StringVarP(&mediaID, "media-id", "i", "", "delete the media with this media ID")
	cmd.Flags().StringVarP(&serverName, "server-name", "s", "", "the server name of the media, defaults to the homeserver name")
	before.register(cmd, "delete media")
	cmd.Flags().Int64Var(&sizeGT, "size-gt", 0, "only delete media larger than this number of bytes")
	cmd.Flags().BoolVar(&keepProfiles, "keep-profiles", true, "keep media used as avatars")
	cmd.Flags().BoolVar(&deleteProfiles, "delete-profiles", false, "also delete media used as avatars")
	cmd.MarkFlagsMutuallyExclusive("keep-profiles", "delete-profiles")

	return cmd
}

// mediaServerName returns the given server name or, when empty, the name of
// the local homeserver.
func mediaServerName(ctx context.Context, app *App, given string) (string, error) {
	if given != "" {
		return identifier.ParseServerName(given)
	}
	name, err := app.resolver().HomeserverName(ctx)
	if err != nil {
		return "", errors.FromRequest("Homeserver name could not be fetched", err)
	}
	return name, nil
}

func (a *App) deleteMedia(cmd *cobra.Command, question string, params map[string]any,
	del func(c *synapse.Client) (any, error)) error {
	sure, err := a.confirm(question)
	if err != nil {
		return err
	}
	if !sure {
		a.aborted(cmd, "media_delete", params)
		return nil
	}
	c, err := a.adminClient()
	if err != nil {
		return err
	}
	var resp any
	err = a.track(cmd, "media_delete", params, func() error {
		var reqErr error
		resp, reqErr = del(c)
		return reqErr
	})
	if err != nil {
		return errors.FromRequest("Media could not be deleted", err)
	}
	return a.printer.Print(resp)
}

func mediaPurgeCommand(app *App) *cobra.Command {
	var before beforeFlags

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge cached remote media",
		Long: `Purge cached copies of remote media older than a point in time. Local
media is never touched; use 'synadm media delete' for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ts, err := before.timestamp(cmd, app.now())
			if err != nil {
				return err
			}
			params := map[string]any{"before_ts": ts}
			sure, err := app.confirm("Are you sure you want to purge remote media cached before " + formatMillis(ts) + "? (y/N)")
			if err != nil {
				return err
			}
			if !sure {
				app.aborted(cmd, "media_purge", params)
				return nil
			}

			c, err := app.adminClient()
			if err != nil {
				return err
			}
			var resp any
			err = app.track(cmd, "media_purge", params, func() error {
				var reqErr error
				resp, reqErr = c.PurgeRemoteMedia(ctx, ts)
				return reqErr
			})
			if err != nil {
				return errors.FromRequest("Remote media could not be purged", err)
			}
			return app.printer.Print(resp)
		},
	}

	before.register(cmd, "purge remote media")
	cmd.MarkFlagsOneRequired("before-days", "before", "before-ts")

	return cmd
}
