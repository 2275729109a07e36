package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client/synapse"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

// RegTokenCommand creates the regtok command group.
func RegTokenCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regtok",
		Short: "Manage registration tokens",
	}

	cmd.AddCommand(regTokenListCommand(app))
	cmd.AddCommand(regTokenDetailsCommand(app))
	cmd.AddCommand(regTokenNewCommand(app))
	cmd.AddCommand(regTokenUpdateCommand(app))
	cmd.AddCommand(regTokenDeleteCommand(app))

	return cmd
}

// expiryFlags select how expiry_time is shown.
type expiryFlags struct {
	datetime  bool
	timestamp bool
}

func (e *expiryFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&e.datetime, "datetime", true, "show expiry_time as local date and time")
	cmd.Flags().BoolVar(&e.timestamp, "timestamp", false, "show expiry_time as unix timestamp in ms")
	cmd.MarkFlagsMutuallyExclusive("datetime", "timestamp")
}

// convert rewrites expiry_time of a token object in place.
func (e *expiryFlags) convert(token any) {
	if e.timestamp {
		return
	}
	obj, ok := token.(map[string]any)
	if !ok {
		return
	}
	switch ts := obj["expiry_time"].(type) {
	case int64:
		obj["expiry_time"] = formatMillis(ts)
	case float64:
		obj["expiry_time"] = formatMillis(int64(ts))
	}
}

func regTokenListCommand(app *App) *cobra.Command {
	var valid, invalid bool
	var expiry expiryFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registration tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *bool
			switch {
			case valid:
				filter = &valid
			case invalid:
				filter = new(bool)
			}
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			tokens, err := c.RegTokenList(cmd.Context(), filter)
			if err != nil {
				return errors.FromRequest("Registration tokens could not be fetched", err)
			}
			list, ok := field(tokens, "registration_tokens")
			if !ok {
				return app.printer.Print(tokens)
			}
			items, _ := list.([]any)
			for _, t := range items {
				expiry.convert(t)
			}
			if app.printer.Human() {
				if len(items) == 0 {
					app.printer.Println("No registration tokens.")
					return nil
				}
				return app.printer.Print(list)
			}
			return app.printer.Print(tokens)
		},
	}

	cmd.Flags().BoolVarP(&valid, "valid", "V", false, "list only tokens that can still be used")
	cmd.Flags().BoolVarP(&invalid, "invalid", "I", false, "list only tokens that are used up or expired")
	cmd.MarkFlagsMutuallyExclusive("valid", "invalid")
	expiry.register(cmd)

	return cmd
}

func regTokenDetailsCommand(app *App) *cobra.Command {
	var expiry expiryFlags

	cmd := &cobra.Command{
		Use:   "details TOKEN",
		Short: "Show details of a registration token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			token, err := c.RegTokenDetails(cmd.Context(), args[0])
			if err != nil {
				return errors.FromRequest("Registration token could not be fetched", err)
			}
			expiry.convert(token)
			return app.printer.Print(token)
		},
	}
	expiry.register(cmd)

	return cmd
}

// limitFlags are the limits shared by regtok new and regtok update.
type limitFlags struct {
	usesAllowed int64
	expiryTS    int64
	expire      string
}

func (l *limitFlags) register(cmd *cobra.Command, clearable bool) {
	usesHelp := "how many times the token can be used, unlimited if not given"
	tsHelp := "unix timestamp in ms after which the token is invalid"
	if clearable {
		usesHelp = "how many times the token can be used, -1 for unlimited"
		tsHelp += ", -1 for no expiry"
	}
	cmd.Flags().Int64VarP(&l.usesAllowed, "uses-allowed", "u", 0, usesHelp)
	cmd.Flags().Int64VarP(&l.expiryTS, "expiry-ts", "t", 0, tsHelp)
	cmd.Flags().StringVarP(&l.expire, "expire", "e", "",
		"point in time after which the token is invalid ("+dateFormatsHelp+")")
	cmd.MarkFlagsMutuallyExclusive("expiry-ts", "expire")
}

// apply copies the given limits into opts. With clearable, -1 removes a
// limit.
func (l *limitFlags) apply(cmd *cobra.Command, opts *synapse.RegTokenOptions, clearable bool) error {
	f := cmd.Flags()
	if f.Changed("uses-allowed") {
		switch {
		case clearable && l.usesAllowed == -1:
			opts.ClearUsesAllowed = true
		case l.usesAllowed < 0:
			return errors.NewUsageError("--uses-allowed must not be negative")
		default:
			uses := l.usesAllowed
			opts.UsesAllowed = &uses
		}
	}
	switch {
	case f.Changed("expiry-ts"):
		switch {
		case clearable && l.expiryTS == -1:
			opts.ClearExpiryTime = true
		case l.expiryTS < 0:
			return errors.NewUsageError("--expiry-ts must not be negative")
		default:
			ts := l.expiryTS
			opts.ExpiryTime = &ts
		}
	case f.Changed("expire"):
		t, err := parseDate(l.expire)
		if err != nil {
			return err
		}
		ts := t.UnixMilli()
		opts.ExpiryTime = &ts
	}
	return nil
}

func regTokenNewCommand(app *App) *cobra.Command {
	var opts synapse.RegTokenOptions
	var limits limitFlags

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a registration token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Token == "" && (opts.Length < 1 || opts.Length > 64) {
				return errors.NewUsageError("--length must be between 1 and 64")
			}
			if opts.Token != "" {
				opts.Length = 0
			}
			if err := limits.apply(cmd, &opts, false); err != nil {
				return err
			}
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			token, err := c.RegTokenNew(cmd.Context(), opts)
			if err != nil {
				return errors.FromRequest("Registration token could not be created", err)
			}
			return app.printer.Print(token)
		},
	}

	cmd.Flags().StringVarP(&opts.Token, "token", "n", "", "the token to create, generated by the server if not given")
	cmd.Flags().IntVarP(&opts.Length, "length", "l", 16, "length of a generated token")
	limits.register(cmd, false)

	return cmd
}

func regTokenUpdateCommand(app *App) *cobra.Command {
	var limits limitFlags

	cmd := &cobra.Command{
		Use:   "update TOKEN",
		Short: "Change the limits of a registration token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts synapse.RegTokenOptions
			if err := limits.apply(cmd, &opts, true); err != nil {
				return err
			}
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			token, err := c.RegTokenUpdate(cmd.Context(), args[0], opts)
			if err != nil {
				return errors.FromRequest("Registration token could not be updated", err)
			}
			return app.printer.Print(token)
		},
	}

	limits.register(cmd, true)
	cmd.MarkFlagsOneRequired("uses-allowed", "expiry-ts", "expire")

	return cmd
}

func regTokenDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TOKEN",
		Short: "Delete a registration token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			params := map[string]any{"token": token}
			sure, err := app.confirm(fmt.Sprintf("Are you sure you want to delete registration token %s? (y/N)", token))
			if err != nil {
				return err
			}
			if !sure {
				app.aborted(cmd, "regtok_delete", params)
				return nil
			}
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			var resp any
			err = app.track(cmd, "regtok_delete", params, func() error {
				var reqErr error
				resp, reqErr = c.RegTokenDelete(cmd.Context(), token)
				return reqErr
			})
			if err != nil {
				return errors.FromRequest("Registration token could not be deleted", err)
			}
			if app.printer.Human() && isEmptyObject(resp) {
				app.printer.Println("Registration token %s deleted.", token)
				return nil
			}
			return app.printer.Print(resp)
		},
	}
}
