// Command synadm is a command line admin tool for the Synapse Matrix
// homeserver.
//
// Purpose:
//
//	This binary provides a command-line interface for homeserver
//	administrators on top of the Synapse admin API: user, room, media,
//	history, notice and registration token management, plus raw requests
//	against the admin and client-server APIs.
//
// Dependencies:
//   - internal/commands: Cobra command implementations
//   - internal/errors: exit codes of structured CLI errors
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/commands"
	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := commands.Run(ctx, os.Args[1:],
		commands.WithVersion(fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildTime)))
	if err == nil {
		return
	}

	prefix := color.New(color.FgRed, color.Bold).Sprint("Error:")
	fmt.Fprintf(os.Stderr, "%s %v\n", prefix, err)

	// Handle structured CLI errors with exit codes
	var cliErr *errors.CLIError
	if stderrors.As(err, &cliErr) {
		stop()
		os.Exit(cliErr.ExitCode)
	}
	stop()
	os.Exit(1)
}
