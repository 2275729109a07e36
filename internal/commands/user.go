package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client/synapse"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

// UserCommand creates the user command group.
func UserCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "List, add, modify, deactivate or erase users, reset passwords",
	}

	cmd.AddCommand(userListCommand(app))
	cmd.AddCommand(userDetailsCommand(app))
	cmd.AddCommand(userMembershipCommand(app))
	cmd.AddCommand(userSearchCommand(app))
	cmd.AddCommand(userDeactivateCommand(app))
	cmd.AddCommand(userPasswordCommand(app))
	cmd.AddCommand(userModifyCommand(app))
	cmd.AddCommand(userWhoisCommand(app))

	return cmd
}

func userListCommand(app *App) *cobra.Command {
	var opts synapse.UserListOptions
	var guests, noGuests bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List and search for users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case cmd.Flags().Changed("guests"):
				opts.Guests = &guests
			case cmd.Flags().Changed("no-guests"):
				v := !noGuests
				opts.Guests = &v
			}
			return runUserList(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.From, "from", "f", 0, "offset user listing by given number, also used for pagination")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 100, "limit user listing to given number")
	cmd.Flags().BoolVarP(&guests, "guests", "g", false, "show guest users")
	cmd.Flags().BoolVarP(&noGuests, "no-guests", "G", false, "hide guest users")
	cmd.Flags().BoolVarP(&opts.Deactivated, "deactivated", "d", false, "also show deactivated/erased users")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "",
		"search users by name, matching user ID localparts or display names containing this value")
	cmd.Flags().StringVarP(&opts.UserID, "user-id", "i", "", "search users by ID, matching user IDs containing this value")
	cmd.MarkFlagsMutuallyExclusive("guests", "no-guests")
	cmd.MarkFlagsMutuallyExclusive("name", "user-id")

	return cmd
}

func runUserList(ctx context.Context, app *App, opts synapse.UserListOptions) error {
	c, err := app.adminClient()
	if err != nil {
		return err
	}
	users, err := c.UserList(ctx, opts)
	if err != nil {
		return errors.FromRequest("Users could not be fetched", err)
	}
	if !app.printer.Human() {
		return app.printer.Print(users)
	}

	total := intField(users, "total")
	app.printer.Println("Total users on homeserver (excluding deactivated): %d", total)
	if total != 0 {
		list, _ := field(users, "users")
		if err := app.printer.Print(list); err != nil {
			return err
		}
	}
	if next, ok := field(users, "next_token"); ok && next != nil {
		app.printer.Println("There is more users than shown, use '--from %v' to go to next page", next)
	}
	return nil
}

func userDetailsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "details USER_ID",
		Short: "View details of a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := app.mxid(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return runUserDetails(cmd.Context(), app, userID)
		},
	}
}

func runUserDetails(ctx context.Context, app *App, userID string) error {
	c, err := app.adminClient()
	if err != nil {
		return err
	}
	details, err := c.UserDetails(ctx, userID)
	if err != nil {
		return errors.FromRequest("User details could not be fetched", err)
	}
	return app.printer.Print(details)
}

func userMembershipCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "membership USER_ID",
		Short: "List all rooms a user is member of",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := app.mxid(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return runUserMembership(cmd.Context(), app, userID)
		},
	}
}

func runUserMembership(ctx context.Context, app *App, userID string) error {
	c, err := app.adminClient()
	if err != nil {
		return err
	}
	rooms, err := c.UserMembership(ctx, userID)
	if err != nil {
		return errors.FromRequest("Membership could not be fetched", err)
	}
	if !app.printer.Human() {
		return app.printer.Print(rooms)
	}
	total := intField(rooms, "total")
	app.printer.Println("User is member of %d rooms.", total)
	if total != 0 {
		joined, _ := field(rooms, "joined_rooms")
		return app.printer.Print(joined)
	}
	return nil
}

func userSearchCommand(app *App) *cobra.Command {
	var from, limit int

	cmd := &cobra.Command{
		Use:   "search SEARCH_TERM",
		Short: "Case-insensitive shortcut for 'user list -d -g -n SEARCH_TERM'",
		Long: `Search users by name or user ID, including deactivated and guest
users. The search runs twice, once for the lower-case and once for the
capitalized term, because the server matches case-sensitively.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guests := true
			for _, term := range []string{strings.ToLower(args[0]), capitalize(args[0])} {
				app.printer.Println("User search results for '%s':", term)
				err := runUserList(cmd.Context(), app, synapse.UserListOptions{
					From:        from,
					Limit:       limit,
					Name:        term,
					Deactivated: true,
					Guests:      &guests,
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&from, "from", "f", 0, "offset user listing by given number, also used for pagination")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum amount of users to return")

	return cmd
}

func userDeactivateCommand(app *App) *cobra.Command {
	var erase bool

	cmd := &cobra.Command{
		Use:   "deactivate USER_ID",
		Short: "Deactivate or GDPR-erase a user",
		Long: `Deactivate or GDPR-erase a user. This removes active access tokens,
resets the password and deletes third-party IDs, so that the user can not
request a password reset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := app.mxid(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return runUserDeactivate(cmd, app, userID, erase)
		},
	}

	cmd.Flags().BoolVarP(&erase, "gdpr-erase", "e", false,
		"mark the user as GDPR-erased, hiding their messages from users joining rooms afterwards")

	return cmd
}

func runUserDeactivate(cmd *cobra.Command, app *App, userID string, erase bool) error {
	ctx := cmd.Context()
	verb, done := "deactivate", "deactivated"
	if erase {
		verb, done = "gdpr-erase", "gdpr-erased"
	}

	app.printer.Println(`
Note that deactivating or gdpr-erasing a user leads to the following:
  - Removal from all joined rooms
  - Password reset
  - Deletion of third-party IDs (to prevent the user requesting a password reset)
`)
	if err := runUserDetails(ctx, app, userID); err != nil {
		return err
	}
	if err := runUserMembership(ctx, app, userID); err != nil {
		return err
	}

	params := map[string]any{"user_id": userID, "erase": erase}
	sure, err := app.confirm(fmt.Sprintf("Are you sure you want to %s this user? (y/N)", verb))
	if err != nil {
		return err
	}
	if !sure {
		app.aborted(cmd, "user_deactivate", params)
		return nil
	}

	c, err := app.adminClient()
	if err != nil {
		return err
	}
	var resp any
	err = app.track(cmd, "user_deactivate", params, func() error {
		var reqErr error
		resp, reqErr = c.UserDeactivate(ctx, userID, erase)
		return reqErr
	})
	if err != nil {
		return errors.FromRequest(fmt.Sprintf("User could not be %s", done), err)
	}
	if !app.printer.Human() {
		return app.printer.Print(resp)
	}
	if result, _ := field(resp, "id_server_unbind_result"); result == "success" {
		app.printer.Println("User successfully %s.", done)
	} else {
		app.printer.Println("Synapse returned: %v", result)
	}
	return nil
}

func userPasswordCommand(app *App) *cobra.Command {
	var noLogout bool
	var password string

	cmd := &cobra.Command{
		Use:   "password USER_ID",
		Short: "Change a user's password",
		Long: `Change a user's password. The user is logged out of all sessions
unless -n is given. Without -p the new password is asked interactively.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := app.mxid(ctx, args[0])
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = app.password("New password", true, "Use -p."); err != nil {
					return err
				}
			}

			c, err := app.adminClient()
			if err != nil {
				return err
			}
			var resp any
			params := map[string]any{"user_id": userID, "no_logout": noLogout}
			err = app.track(cmd, "user_password", params, func() error {
				var reqErr error
				resp, reqErr = c.UserPassword(ctx, userID, password, noLogout)
				return reqErr
			})
			if err != nil {
				return errors.FromRequest("Password could not be reset", err)
			}
			if !app.printer.Human() {
				return app.printer.Print(resp)
			}
			if isEmptyObject(resp) {
				app.printer.Println("Password reset successfully.")
			} else {
				app.printer.Println("Synapse returned: %s", compact(resp))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&noLogout, "no-logout", "n", false, "don't log the user out of all sessions on all devices")
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password (asked interactively when missing)")

	return cmd
}

// threepidMediums are the mediums the Matrix spec defines.
var threepidMediums = map[string]bool{"email": true, "msisdn": true}

func userModifyCommand(app *App) *cobra.Command {
	var passwordPrompt bool
	var password, displayName, avatarURL string
	var threepids []string
	var admin, noAdmin, activate, deactivate bool

	cmd := &cobra.Command{
		Use:   "modify USER_ID",
		Short: "Create or modify a local user",
		Long: `Create or modify a local user. Only the given settings are changed.

Third-party identifiers are given as MEDIUM:ADDRESS, e.g.
'-t email:alice@example.org'; -t may be repeated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordPrompt && password != "" {
				return errors.NewUsageError("Use either '-p' or '-P secret', not both.")
			}
			hasPassword := passwordPrompt || password != ""
			if activate && !hasPassword {
				return errors.NewUsageError("Need to set password when activating a user. Add either '-p' or '-P secret' to your command.")
			}
			if deactivate && hasPassword {
				return errors.NewUsageError("Deactivating a user and setting a password doesn't make sense.")
			}

			var mod synapse.UserModification
			var changes []string
			if cmd.Flags().Changed("display-name") {
				mod.DisplayName = &displayName
				changes = append(changes, "display_name: "+displayName)
			}
			for _, raw := range threepids {
				medium, address, ok := strings.Cut(raw, ":")
				if !ok || medium == "" || address == "" {
					return errors.NewUsageError(fmt.Sprintf("threepid %q must be given as MEDIUM:ADDRESS", raw))
				}
				if !threepidMediums[medium] {
					app.logger.Warn(fmt.Sprintf("%s is probably not a supported medium type. "+
						"Threepid medium types according to the current Matrix spec are: email, msisdn.", medium))
				}
				mod.Threepids = append(mod.Threepids, synapse.Threepid{Medium: medium, Address: address})
				changes = append(changes, fmt.Sprintf("threepid: %s %s", medium, address))
			}
			if cmd.Flags().Changed("avatar-url") {
				mod.AvatarURL = &avatarURL
				changes = append(changes, "avatar_url: "+avatarURL)
			}
			switch {
			case admin:
				mod.Admin = &admin
				changes = append(changes, "admin: true")
			case noAdmin:
				v := false
				mod.Admin = &v
				changes = append(changes, "admin: false")
			}
			switch {
			case activate:
				v := false
				mod.Deactivated = &v
				changes = append(changes, "deactivation: activate")
			case deactivate:
				v := true
				mod.Deactivated = &v
				changes = append(changes, "deactivation: deactivate")
			}

			ctx := cmd.Context()
			userID, err := app.mxid(ctx, args[0])
			if err != nil {
				return err
			}
			return runUserModify(cmd, app, userID, mod, changes, passwordPrompt, password)
		},
	}

	cmd.Flags().BoolVarP(&passwordPrompt, "password-prompt", "p", false, "set password interactively")
	cmd.Flags().StringVarP(&password, "password", "P", "", "set password on command line")
	cmd.Flags().StringVarP(&displayName, "display-name", "n", "", "set display name")
	cmd.Flags().StringArrayVarP(&threepids, "threepid", "t", nil,
		"add a third-party identifier as MEDIUM:ADDRESS (email or msisdn), may be repeated")
	cmd.Flags().StringVar(&avatarURL, "avatar-url", "", "set avatar URL, must be an MXC URI")
	cmd.Flags().BoolVarP(&admin, "admin", "a", false, "grant the user admin permission")
	cmd.Flags().BoolVarP(&noAdmin, "no-admin", "u", false, "revoke the user's admin permission")
	cmd.Flags().BoolVar(&activate, "activate", false, "re-activate the user (needs a password)")
	cmd.Flags().BoolVar(&deactivate, "deactivate", false,
		"deactivate the user, see also 'user deactivate'")
	cmd.MarkFlagsMutuallyExclusive("admin", "no-admin")
	cmd.MarkFlagsMutuallyExclusive("activate", "deactivate")
	cmd.MarkFlagsOneRequired("password-prompt", "password", "display-name", "threepid",
		"avatar-url", "admin", "no-admin", "activate", "deactivate")

	return cmd
}

func runUserModify(cmd *cobra.Command, app *App, userID string, mod synapse.UserModification,
	changes []string, passwordPrompt bool, password string) error {
	ctx := cmd.Context()

	app.printer.Println("Current user account settings:")
	if err := runUserDetails(ctx, app, userID); err != nil {
		var apiErr *client.APIError
		if !stderrors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			return err
		}
		app.printer.Println("User does not exist yet, it will be created.")
	}

	app.printer.Println("User account settings to be modified:")
	for _, change := range changes {
		app.printer.Println("%s", change)
	}

	switch {
	case passwordPrompt:
		pw, err := app.password("Password", true, "Use -P.")
		if err != nil {
			return err
		}
		mod.Password = &pw
	case password != "":
		app.printer.Println("Password will be set as provided on command line.")
		mod.Password = &password
	}

	params := map[string]any{"user_id": userID, "changes": changes, "password": mod.Password != nil}
	sure, err := app.confirm("Are you sure you want to modify user? (y/N)")
	if err != nil {
		return err
	}
	if !sure {
		app.aborted(cmd, "user_modify", params)
		return nil
	}

	c, err := app.adminClient()
	if err != nil {
		return err
	}
	var resp any
	err = app.track(cmd, "user_modify", params, func() error {
		var reqErr error
		resp, reqErr = c.UserModify(ctx, userID, mod)
		return reqErr
	})
	if err != nil {
		return errors.FromRequest("User could not be modified", err)
	}
	if !app.printer.Human() {
		return app.printer.Print(resp)
	}
	if isEmptyObject(resp) {
		app.printer.Println("Synapse returned: %s", compact(resp))
		return nil
	}
	if err := app.printer.Print(resp); err != nil {
		return err
	}
	app.printer.Println("User successfully modified.")
	return nil
}

func userWhoisCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whois USER_ID",
		Short: "Return information about the user's active sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := app.mxid(ctx, args[0])
			if err != nil {
				return err
			}
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			whois, err := c.UserWhois(ctx, userID)
			if err != nil {
				return errors.FromRequest("User session information could not be fetched", err)
			}
			return app.printer.Print(whois)
		},
	}
}
