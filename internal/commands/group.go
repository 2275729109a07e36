package commands

import (
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

// GroupCommand creates the group command group.
func GroupCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups (communities)",
	}
	cmd.AddCommand(groupDeleteCommand(app))
	return cmd
}

func groupDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete GROUP_ID",
		Short: "Delete a local group (community)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID := args[0]
			params := map[string]any{"group_id": groupID}
			sure, err := app.confirm("Are you sure you want to delete this group? (y/N)")
			if err != nil {
				return err
			}
			if !sure {
				app.aborted(cmd, "group_delete", params)
				return nil
			}

			c, err := app.adminClient()
			if err != nil {
				return err
			}
			var resp any
			err = app.track(cmd, "group_delete", params, func() error {
				var reqErr error
				resp, reqErr = c.GroupDelete(cmd.Context(), groupID)
				return reqErr
			})
			if err != nil {
				app.printer.Println("Group not deleted.")
				return errors.FromRequest("Group could not be deleted", err)
			}
			return app.printer.Print(resp)
		},
	}
}
