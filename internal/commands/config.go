package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/config"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/health"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/output"
)

// configFlags holds the values given to 'synadm config' on the command line.
// Empty strings and a zero timeout mean "not given".
type configFlags struct {
	user       string
	token      string
	baseURL    string
	adminPath  string
	matrixPath string
	timeout    int
	format     string
	discovery  string
	homeserver string
	sslVerify  *bool
}

// ConfigCommand creates the configurator command.
func ConfigCommand(app *App) *cobra.Command {
	var flags configFlags
	var sslVerify, noSSLVerify bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Modify synadm's configuration",
		Long: `Modify synadm's configuration. Configuration details are asked
interactively; command line options override the proposed defaults.

In batch mode (--batch) nothing is asked and every option except
--ssl-verify must be given on the command line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case cmd.Flags().Changed("no-ssl-verify"):
				v := !noSSLVerify
				flags.sslVerify = &v
			case cmd.Flags().Changed("ssl-verify"):
				flags.sslVerify = &sslVerify
			}
			if app.batch {
				return app.runBatchConfig(cmd.Context(), flags)
			}
			return app.runConfigurator(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.user, "user", "u", "", "admin user for accessing the Synapse admin API")
	cmd.Flags().StringVarP(&flags.token, "token", "t", "", "admin user's access token for the Synapse admin API")
	cmd.Flags().StringVarP(&flags.baseURL, "base-url", "b", "",
		"the base URL Synapse is running on, typically http://localhost:8008 or https://example.org:8448")
	cmd.Flags().StringVarP(&flags.adminPath, "admin-path", "p", "", "the path Synapse provides its admin API on")
	cmd.Flags().StringVarP(&flags.matrixPath, "matrix-path", "m", "", "the path Synapse provides the Matrix client-server API on")
	cmd.Flags().IntVarP(&flags.timeout, "timeout", "w", 0, "the timeout for HTTP requests in seconds")
	cmd.Flags().StringVarP(&flags.format, "output", "o", "",
		"default output format ("+strings.Join(output.FormatNames(), ", ")+")")
	cmd.Flags().StringVarP(&flags.discovery, "server-discovery", "d", "",
		"how the homeserver name is looked up: well-known or dns")
	cmd.Flags().StringVarP(&flags.homeserver, "homeserver", "n", "",
		"the homeserver name (the part after the colon in user IDs), or auto-retrieval")
	cmd.Flags().BoolVarP(&sslVerify, "ssl-verify", "i", true, "verify TLS certificates")
	cmd.Flags().BoolVarP(&noSSLVerify, "no-ssl-verify", "k", false, "do not verify TLS certificates")
	cmd.MarkFlagsMutuallyExclusive("ssl-verify", "no-ssl-verify")

	return cmd
}

func (a *App) runBatchConfig(ctx context.Context, flags configFlags) error {
	given := []string{flags.user, flags.token, flags.baseURL, flags.adminPath, flags.matrixPath,
		flags.format, flags.discovery, flags.homeserver}
	missing := flags.timeout <= 0
	for _, v := range given {
		if strings.TrimSpace(v) == "" {
			missing = true
		}
	}
	if missing {
		fmt.Fprintln(a.out, "Missing config options for batch configuration!")
		return errors.NewConfigError("batch configuration needs every option", errors.ExitBatchConfigMissing)
	}

	cfg := &config.Config{
		User:            flags.user,
		Token:           flags.token,
		BaseURL:         flags.baseURL,
		AdminPath:       flags.adminPath,
		MatrixPath:      flags.matrixPath,
		Timeout:         flags.timeout,
		Format:          flags.format,
		ServerDiscovery: flags.discovery,
		Homeserver:      flags.homeserver,
		SSLVerify:       config.DefaultSSLVerify,
	}
	if flags.sslVerify != nil {
		cfg.SSLVerify = *flags.sslVerify
	}
	if err := normalizeConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Saving to config file.")
	return a.saveConfig(ctx, cfg)
}

func (a *App) runConfigurator(ctx context.Context, flags configFlags) error {
	fmt.Fprintln(a.out, "Running configurator...")
	current := a.cfg
	if current == nil {
		current = config.Defaults()
	}
	pick := func(flag, configured string) string {
		if flag != "" {
			return flag
		}
		return configured
	}

	cfg := &config.Config{}
	var err error
	ask := func(dst *string, question, def string) {
		if err != nil {
			return
		}
		*dst, err = a.prompter.Input(question, def)
	}
	ask(&cfg.User, "Synapse admin user name", pick(flags.user, current.User))
	ask(&cfg.Token, "Synapse admin user token", pick(flags.token, current.Token))
	ask(&cfg.BaseURL, "Synapse base URL", pick(flags.baseURL, current.BaseURL))
	ask(&cfg.AdminPath, "Synapse admin API path", pick(flags.adminPath, current.AdminPath))
	ask(&cfg.MatrixPath, "Matrix API path", pick(flags.matrixPath, current.MatrixPath))
	if err != nil {
		return promptError(err)
	}

	defFormat := pick(flags.format, current.Format)
	if f, ferr := output.ResolveFormat(defFormat); ferr == nil {
		defFormat = string(f)
	}
	if cfg.Format, err = a.prompter.Select("Default output format", output.FormatNames(), defFormat); err != nil {
		return promptError(err)
	}

	defTimeout := current.TimeoutSeconds()
	if flags.timeout > 0 {
		defTimeout = flags.timeout
	}
	var timeout string
	ask(&timeout, "Default http timeout", strconv.Itoa(defTimeout))
	if err != nil {
		return promptError(err)
	}
	if cfg.Timeout, err = strconv.Atoi(strings.TrimSpace(timeout)); err != nil {
		return errors.NewValidationError(fmt.Sprintf("timeout %q is not a number of seconds", timeout), "")
	}

	discoveries := []string{config.DiscoveryWellKnown, config.DiscoveryDNS}
	if cfg.ServerDiscovery, err = a.prompter.Select("Server discovery mode", discoveries,
		pick(flags.discovery, current.ServerDiscovery)); err != nil {
		return promptError(err)
	}
	ask(&cfg.Homeserver, "Homeserver name (\"auto-retrieval\" or the domain part in your MXID)",
		pick(flags.homeserver, current.Homeserver))
	if err != nil {
		return promptError(err)
	}

	defVerify := current.SSLVerify
	if flags.sslVerify != nil {
		defVerify = *flags.sslVerify
	}
	if cfg.SSLVerify, err = a.prompter.Confirm("Verify certificate", defVerify); err != nil {
		return promptError(err)
	}

	if err := normalizeConfig(cfg); err != nil {
		return err
	}
	if err := a.saveConfig(ctx, cfg); err != nil {
		return err
	}

	reloaded, err := config.Load(a.configFile)
	if err != nil || !reloaded.Complete() {
		fmt.Fprintln(a.out, "Configuration incomplete, quitting.")
		return errors.NewConfigError("configuration incomplete", errors.ExitConfigIncomplete)
	}
	a.cfg = reloaded
	return nil
}

// normalizeConfig expands format abbreviations and rejects invalid values.
func normalizeConfig(cfg *config.Config) error {
	if f, err := output.ResolveFormat(cfg.Format); err == nil {
		cfg.Format = string(f)
	}
	if err := cfg.Validate(); err != nil {
		return errors.NewValidationError(err.Error(), "")
	}
	return nil
}

func (a *App) saveConfig(ctx context.Context, cfg *config.Config) error {
	if err := config.Save(a.configFile, cfg); err != nil {
		a.logger.Error(err.Error())
		return errors.NewConfigError("configuration could not be written", errors.ExitConfigWrite)
	}
	fmt.Fprintln(a.out, "Restricting access to config file to user only.")
	a.checkHomeserver(ctx, cfg)
	return nil
}

// checkHomeserver reports an unreachable homeserver or a rejected token as
// a warning; the configuration is kept either way.
func (a *App) checkHomeserver(ctx context.Context, cfg *config.Config) {
	checker := health.NewChecker(5*time.Second, !cfg.SSLVerify)
	results, err := checker.CheckRequired(ctx, health.Targets(cfg.BaseURL, cfg.MatrixPath, cfg.AdminPath, cfg.Token))
	if err != nil {
		a.logger.Warn(err.Error())
		return
	}
	for _, r := range results {
		a.logger.Info(fmt.Sprintf("%s reachable at %s", r.Service, r.URL))
	}
}
