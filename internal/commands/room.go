package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client/synapse"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/identifier"
)

// RoomCommand creates the room command group.
func RoomCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manipulate rooms and room membership",
	}

	cmd.AddCommand(roomListCommand(app))
	cmd.AddCommand(roomDetailsCommand(app))
	cmd.AddCommand(roomMembersCommand(app))
	cmd.AddCommand(roomSearchCommand(app))
	cmd.AddCommand(roomDeleteCommand(app))

	return cmd
}

func roomListCommand(app *App) *cobra.Command {
	var opts synapse.RoomListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List and search for rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.OrderBy != "" && !validOrdering(opts.OrderBy) {
				return errors.NewUsageError(fmt.Sprintf("invalid sort %q, choose one of %s",
					opts.OrderBy, strings.Join(synapse.RoomOrderings, ", ")))
			}
			return runRoomList(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.From, "from", "f", 0, "offset room listing by given number, also used for pagination")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 100, "maximum amount of rooms to return")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "filter rooms by a part of their name")
	cmd.Flags().StringVarP(&opts.OrderBy, "sort", "s", "",
		"sort the returned rooms by one of: "+strings.Join(synapse.RoomOrderings, ", "))
	cmd.Flags().BoolVarP(&opts.Reverse, "reverse", "r", false, "reverse the sort order")

	return cmd
}

func validOrdering(s string) bool {
	for _, o := range synapse.RoomOrderings {
		if o == s {
			return true
		}
	}
	return false
}

func runRoomList(ctx context.Context, app *App, opts synapse.RoomListOptions) error {
	c, err := app.adminClient()
	if err != nil {
		return err
	}
	rooms, err := c.RoomList(ctx, opts)
	if err != nil {
		return errors.FromRequest("Rooms could not be fetched", err)
	}
	if !app.printer.Human() {
		return app.printer.Print(rooms)
	}
	if intField(rooms, "total_rooms") != 0 {
		list, _ := field(rooms, "rooms")
		if err := app.printer.Print(list); err != nil {
			return err
		}
	}
	if next, ok := field(rooms, "next_batch"); ok && next != nil {
		app.printer.Println("There is more rooms than shown, use '--from %v'", next)
	}
	return nil
}

// roomArg validates a room ID argument.
func roomArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	_, err := identifier.ParseRoomID(args[0])
	return err
}

func roomDetailsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "details ROOM_ID",
		Short: "Get room details",
		Args:  roomArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoomDetails(cmd.Context(), app, args[0])
		},
	}
}

func runRoomDetails(ctx context.Context, app *App, roomID string) error {
	c, err := app.adminClient()
	if err != nil {
		return err
	}
	details, err := c.RoomDetails(ctx, roomID)
	if err != nil {
		return errors.FromRequest("Room details could not be fetched", err)
	}
	return app.printer.Print(details)
}

func roomMembersCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "members ROOM_ID",
		Short: "List current room members",
		Args:  roomArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoomMembers(cmd.Context(), app, args[0])
		},
	}
}

func runRoomMembers(ctx context.Context, app *App, roomID string) error {
	c, err := app.adminClient()
	if err != nil {
		return err
	}
	members, err := c.RoomMembers(ctx, roomID)
	if err != nil {
		return errors.FromRequest("Room members could not be fetched", err)
	}
	if !app.printer.Human() {
		return app.printer.Print(members)
	}
	total := intField(members, "total")
	app.printer.Println("Total members in room: %d", total)
	if total != 0 {
		list, _ := field(members, "members")
		return app.printer.Print(list)
	}
	return nil
}

func roomSearchCommand(app *App) *cobra.Command {
	var from, limit int

	cmd := &cobra.Command{
		Use:   "search SEARCH_TERM",
		Short: "Case-insensitive shortcut for 'room list -n SEARCH_TERM'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, term := range []string{strings.ToLower(args[0]), capitalize(args[0])} {
				app.printer.Println("Room search results for '%s':", term)
				err := runRoomList(cmd.Context(), app, synapse.RoomListOptions{From: from, Limit: limit, Name: term})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&from, "from", "f", 0, "offset room listing by given number, also used for pagination")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum amount of rooms to return")

	return cmd
}

func roomDeleteCommand(app *App) *cobra.Command {
	var opts synapse.RoomDeleteOptions
	var noPurge bool

	cmd := &cobra.Command{
		Use:   "delete ROOM_ID",
		Short: "Delete and possibly purge a room",
		Args:  roomArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			roomID := args[0]
			opts.Purge = !noPurge
			if opts.NewRoomUserID != "" {
				userID, err := app.mxid(ctx, opts.NewRoomUserID)
				if err != nil {
					return err
				}
				opts.NewRoomUserID = userID
			}

			if err := runRoomDetails(ctx, app, roomID); err != nil {
				return err
			}
			if err := runRoomMembers(ctx, app, roomID); err != nil {
				return err
			}

			params := map[string]any{
				"room_id":          roomID,
				"new_room_user_id": opts.NewRoomUserID,
				"block":            opts.Block,
				"purge":            opts.Purge,
			}
			sure, err := app.confirm("Are you sure you want to delete this room? (y/N)")
			if err != nil {
				return err
			}
			if !sure {
				app.aborted(cmd, "room_delete", params)
				return nil
			}

			c, err := app.adminClient()
			if err != nil {
				return err
			}
			var resp any
			err = app.track(cmd, "room_delete", params, func() error {
				var reqErr error
				resp, reqErr = c.RoomDelete(ctx, roomID, opts)
				return reqErr
			})
			if err != nil {
				app.printer.Println("Room not deleted.")
				return errors.FromRequest("Room could not be deleted", err)
			}
			return app.printer.Print(resp)
		},
	}

	cmd.Flags().StringVarP(&opts.NewRoomUserID, "new-room-user-id", "u", "",
		"create a new room with this local user as creator and admin, and move all users of the old room there")
	cmd.Flags().StringVarP(&opts.RoomName, "room-name", "n", "", "name of the room new users are invited to")
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "",
		"first message sent in the new room, ideally saying why the old room was shut down")
	cmd.Flags().BoolVarP(&opts.Block, "block", "b", false, "block the room, preventing future attempts to join it")
	cmd.Flags().BoolVar(&noPurge, "no-purge", false, "keep all traces of the room in the database")

	return cmd
}
