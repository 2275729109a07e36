package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

// matrixTokenEnv holds a token for 'matrix raw' when --token is not given.
const matrixTokenEnv = "MTOKEN"

// MatrixCommand creates the matrix command group for the client-server API.
func MatrixCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Execute Matrix client-server API requests",
	}
	cmd.AddCommand(matrixLoginCommand(app))
	cmd.AddCommand(matrixRawCommand(app))
	return cmd
}

func matrixLoginCommand(app *App) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login USER_ID",
		Short: "Log in as a user and obtain an access token",
		Long: `Log in to the homeserver with a password. USER_ID may be a full user ID
or a localpart, which is completed with the homeserver name. The response
contains the new access token and device ID.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := app.mxid(ctx, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("password") {
				if password, err = app.password("Password:", false, "Use -p."); err != nil {
					return err
				}
			}
			c, err := app.matrixClient()
			if err != nil {
				return err
			}
			resp, err := c.Login(ctx, userID, password)
			if err != nil {
				return errors.FromRequest("Login failed", err)
			}
			return app.printer.Print(resp)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "the user's password, prompted for if not given")

	return cmd
}

func matrixRawCommand(app *App) *cobra.Command {
	var flags rawFlags
	var token string
	var promptToken bool

	cmd := &cobra.Command{
		Use:   "raw ENDPOINT",
		Short: "Issue a custom request to the client-server API",
		Long: `Issue a custom request to the Matrix client-server API. ENDPOINT is
appended to the configured matrix path as given.

The request is authenticated with, in this order: a token entered at the
--prompt, the --token flag, the MTOKEN environment variable, or the
configured admin token.`,
		Example: `  synadm matrix raw client/versions
  MTOKEN=syt_... synadm matrix raw -m put -d '{"displayname": "Bot"}' 'client/v3/profile/%40bot%3Aexample.org/displayname'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, body, err := flags.request(app.in)
			if err != nil {
				return err
			}
			switch {
			case promptToken:
				if token, err = app.password("Token:", false, "Use --token or MTOKEN."); err != nil {
					return err
				}
			case token == "":
				token = os.Getenv(matrixTokenEnv)
			}
			c, err := app.matrixClient()
			if err != nil {
				return err
			}
			resp, err := c.Raw(cmd.Context(), method, args[0], body, token)
			if err != nil {
				return errors.FromRequest("Matrix request failed", err)
			}
			return app.printer.Print(resp)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&token, "token", "t", "", "access token to use instead of the configured one")
	cmd.Flags().BoolVarP(&promptToken, "prompt", "p", false, "prompt for the access token")
	cmd.MarkFlagsMutuallyExclusive("token", "prompt")

	return cmd
}
