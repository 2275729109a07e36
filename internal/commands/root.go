// Package commands provides the Cobra command tree of synadm.
//
// Purpose:
//
//	Every command collects its arguments, builds one request (or a short
//	sequence of requests) against the Synapse admin API or the Matrix
//	client-server API, and renders the JSON response in the selected
//	output format. Destructive commands ask for confirmation unless running
//	in batch mode, and privileged operations are written to the audit log.
//
// Dependencies:
//   - github.com/spf13/cobra: command tree and flag parsing
//   - internal/config: loading and writing the configuration file
//   - internal/client/synapse, internal/client/matrix: API clients
//   - internal/output: response rendering
//   - internal/prompt: interactive questions
//   - internal/audit, internal/logging: logs
package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/audit"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client/matrix"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client/synapse"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/config"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/identifier"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/logging"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/output"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/prompt"
)

// App carries the state shared by all commands of one invocation.
type App struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	prompter prompt.Prompter
	now      func() time.Time
	logFile  string
	version  string

	// Global flags
	configFile     string
	verbosity      int
	batch          bool
	noBatch        bool
	nonInteractive bool
	format         string

	cfg     *config.Config
	logger  *logging.Logger
	printer *output.Printer
	audit   *audit.Logger
}

// Option configures an App.
type Option func(*App)

// WithIO replaces the standard streams.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) {
		a.in = in
		a.out = out
		a.errOut = errOut
	}
}

// WithPrompter replaces the terminal prompter.
func WithPrompter(p prompt.Prompter) Option {
	return func(a *App) { a.prompter = p }
}

// WithLogFile sets the debug log file. An empty path disables it.
func WithLogFile(path string) Option {
	return func(a *App) { a.logFile = path }
}

// WithClock replaces time.Now, which relative dates are computed from.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithVersion sets the version reported by --version.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

func newApp(opts ...Option) *App {
	a := &App{
		in:      os.Stdin,
		out:     os.Stdout,
		errOut:  os.Stderr,
		now:     time.Now,
		logFile: logging.DefaultLogFile(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.prompter == nil {
		a.prompter = prompt.NewSurvey(nil)
	}
	return a
}

// Run builds the command tree, executes it with args and releases the log
// file afterwards.
func Run(ctx context.Context, args []string, opts ...Option) error {
	app := newApp(opts...)
	root := app.rootCommand()
	root.SetArgs(args)
	defer app.close()
	return usageFromCobra(root.ExecuteContext(ctx))
}

// NewRootCommand returns the command tree, e.g. for generating docs.
func NewRootCommand(opts ...Option) *cobra.Command {
	return newApp(opts...).rootCommand()
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "synadm",
		Short: "Synapse administration toolkit",
		Long: `synadm is a command line admin tool for the Synapse Matrix homeserver.

It talks to the Synapse admin API and, for a few commands, the Matrix
client-server API. Run 'synadm config' once to set up the connection.`,
		Version:           a.version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.NewUsageError(err.Error())
	})

	flags := root.PersistentFlags()
	flags.CountVarP(&a.verbosity, "verbose", "v", "enable INFO (-v) or DEBUG (-vv) logging on console")
	flags.BoolVar(&a.batch, "batch", false, "enable batch behavior (no interactive prompts)")
	flags.BoolVar(&a.noBatch, "no-batch", false, "disable batch behavior")
	flags.BoolVar(&a.nonInteractive, "non-interactive", false, "alias for --batch")
	flags.StringVarP(&a.format, "output", "o", "",
		"override default output format ("+strings.Join(output.FormatNames(), ", ")+"); abbreviations such as '-o pp' or '-o h' work")
	flags.StringVarP(&a.configFile, "config-file", "c", envOr("SYNADM_CONFIG_FILE", "~/.config/synadm.yaml"), "configuration file path")

	root.AddCommand(ConfigCommand(a))
	root.AddCommand(VersionCommand(a))
	root.AddCommand(UserCommand(a))
	root.AddCommand(RoomCommand(a))
	root.AddCommand(MediaCommand(a))
	root.AddCommand(HistoryCommand(a))
	root.AddCommand(GroupCommand(a))
	root.AddCommand(NoticeCommand(a))
	root.AddCommand(RegTokenCommand(a))
	root.AddCommand(RawCommand(a))
	root.AddCommand(MatrixCommand(a))

	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// setup runs before every command: it opens the logs, loads the
// configuration (running the configurator when it is incomplete) and
// selects the output format.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	if isBuiltinCommand(cmd) {
		return nil
	}
	if a.nonInteractive {
		a.batch = true
	}
	if a.noBatch {
		a.batch = false
	}

	logger, err := logging.New(logging.DefaultConfig().
		WithVerbosity(a.verbosity).
		WithLogFile(a.logFile).
		WithConsole(a.errOut))
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.logger = logger
	a.audit = audit.NewLogger(logger.Logger)

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return errors.NewConfigError(err.Error(), 1)
	}
	a.cfg = cfg
	a.logger.Debug("configuration loaded",
		zap.Any("config", logging.RedactFields(map[string]any{
			"file":             cfg.ConfigFile,
			"user":             cfg.User,
			"token":            cfg.Token,
			"base_url":         cfg.BaseURL,
			"server_discovery": cfg.ServerDiscovery,
			"homeserver":       cfg.Homeserver,
		})))

	if isConfigCommand(cmd) {
		// A broken format must not keep the configurator from fixing it.
		if err := a.selectFormat(); err != nil {
			a.printer = output.NewPrinter(a.out, output.FormatYAML)
		}
		return nil
	}

	if missing := cfg.Missing(); len(missing) > 0 {
		for _, key := range missing {
			a.logger.Error("Config entry missing: " + key)
		}
		if a.batch {
			fmt.Fprintln(a.out, "Please setup synadm: synadm config")
			return errors.NewConfigError("synadm is not configured", errors.ExitNotConfigured)
		}
		if err := a.runConfigurator(cmd.Context(), configFlags{}); err != nil {
			return err
		}
	}

	if err := a.cfg.Validate(); err != nil {
		return errors.NewValidationError(err.Error(), "Run 'synadm config' to fix the configuration.")
	}
	return a.selectFormat()
}

func isConfigCommand(cmd *cobra.Command) bool {
	return cmd.Name() == "config" && cmd.HasParent() && !cmd.Parent().HasParent()
}

// isBuiltinCommand reports whether cmd is cobra's help or completion
// command, which work without a configuration.
func isBuiltinCommand(cmd *cobra.Command) bool {
	for c := cmd; c.HasParent(); c = c.Parent() {
		if c.Parent().HasParent() {
			continue
		}
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

func (a *App) selectFormat() error {
	name := a.format
	if name == "" {
		name = a.cfg.Format
	}
	if name == "" {
		name = config.DefaultFormat
	}
	format, err := output.ResolveFormat(name)
	if err != nil {
		return errors.NewUsageError(err.Error())
	}
	a.printer = output.NewPrinter(a.out, format)
	a.logger.Debug("output format selected", zap.String("format", string(format)))
	return nil
}

func (a *App) close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func (a *App) clientConfig(prefix string) client.Config {
	return client.Config{
		BaseURL:            a.cfg.BaseURL,
		Prefix:             prefix,
		Token:              a.cfg.Token,
		Timeout:            time.Duration(a.cfg.TimeoutSeconds()) * time.Second,
		InsecureSkipVerify: !a.cfg.SSLVerify,
		Logger:             a.logger.Named("api"),
	}
}

func (a *App) adminClient() (*synapse.Client, error) {
	c, err := synapse.NewClient(a.clientConfig(a.cfg.AdminPath))
	if err != nil {
		return nil, errors.NewValidationError(err.Error(), "Check base_url with 'synadm config'.")
	}
	return c, nil
}

func (a *App) matrixClient() (*matrix.Client, error) {
	c, err := matrix.NewClient(a.clientConfig(a.cfg.MatrixPath))
	if err != nil {
		return nil, errors.NewValidationError(err.Error(), "Check base_url with 'synadm config'.")
	}
	return c, nil
}

func (a *App) resolver() *matrix.Resolver {
	r := &matrix.Resolver{
		Homeserver: a.cfg.Homeserver,
		Discovery:  a.cfg.ServerDiscovery,
		BaseURL:    a.cfg.BaseURL,
		Localhost:  a.cfg.IsLocalhost(),
		Timeout:    time.Duration(a.cfg.TimeoutSeconds()) * time.Second,
		Insecure:   !a.cfg.SSLVerify,
		Logger:     a.logger.Named("discovery"),
	}
	if !a.batch {
		r.Announce = func(msg string) { fmt.Fprintln(a.out, msg) }
	}
	return r
}

// mxid completes a user argument into a full user ID.
func (a *App) mxid(ctx context.Context, input string) (string, error) {
	return identifier.GenerateMXID(ctx, input, a.resolver())
}

// confirm asks question unless in batch mode. A negative answer prints
// "Abort.".
func (a *App) confirm(question string) (bool, error) {
	if a.batch {
		return true, nil
	}
	sure, err := a.prompter.Confirm(question, false)
	if err != nil {
		return false, promptError(err)
	}
	if !sure {
		fmt.Fprintln(a.out, "Abort.")
	}
	return sure, nil
}

// password asks for a hidden value, which is impossible in batch mode.
func (a *App) password(question string, confirm bool, hint string) (string, error) {
	if a.batch {
		return "", errors.NewUsageError("Password prompt not available in non-interactive mode. " + hint)
	}
	pw, err := a.prompter.Password(question, confirm)
	if err != nil {
		return "", promptError(err)
	}
	return pw, nil
}

func promptError(err error) error {
	if stderrors.Is(err, prompt.ErrInterrupted) {
		return errors.NewOperationError("interrupted", "")
	}
	return errors.NewOperationError(err.Error(), "")
}

// track records a privileged operation in the audit log.
func (a *App) track(cmd *cobra.Command, opType string, params map[string]any, fn func() error) error {
	return a.audit.Track(audit.Operation{
		Type:         opType,
		UserIdentity: a.cfg.User,
		Command:      cmd.CommandPath(),
		Parameters:   params,
	}, fn)
}

// aborted records a privileged operation the user declined.
func (a *App) aborted(cmd *cobra.Command, opType string, params map[string]any) {
	a.audit.LogOperation(audit.Operation{
		Type:         opType,
		UserIdentity: a.cfg.User,
		Command:      cmd.CommandPath(),
		Parameters:   params,
		Outcome:      audit.OutcomeAborted,
	})
}

// cobraUsageMarkers identify errors cobra returns for bad invocations
// without going through the flag error func.
var cobraUsageMarkers = []string{
	"unknown command",
	"flags in the group",
	"required flag",
	"arg(s), received",
	"invalid argument",
}

func usageFromCobra(err error) error {
	if err == nil {
		return nil
	}
	var cliErr *errors.CLIError
	if stderrors.As(err, &cliErr) {
		return err
	}
	for _, marker := range cobraUsageMarkers {
		if strings.Contains(err.Error(), marker) {
			return errors.NewUsageError(err.Error())
		}
	}
	return err
}
