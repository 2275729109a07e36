package commands

import (
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

// VersionCommand creates the version command.
func VersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get the Synapse server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			version, err := c.ServerVersion(cmd.Context())
			if err != nil {
				return errors.FromRequest("Version could not be fetched", err)
			}
			return app.printer.Print(version)
		},
	}
}
