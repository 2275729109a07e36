package logging

import (
	"io"
	"os"
	"path/filepath"
)

// Config controls logger initialization.
type Config struct {
	// Verbosity is the number of -v flags given: 0 logs warnings and errors
	// to the console, 1 adds info, 2 or more adds debug.
	Verbosity int

	// LogFile receives every entry at debug level as JSON. Empty disables
	// the file log.
	LogFile string

	// Console is where human-readable log lines go. Defaults to stderr.
	Console io.Writer
}

// DefaultConfig returns a config that logs warnings to stderr and debug
// output to DefaultLogFile.
func DefaultConfig() Config {
	return Config{
		LogFile: DefaultLogFile(),
		Console: os.Stderr,
	}
}

// WithVerbosity sets the console verbosity.
func (c Config) WithVerbosity(v int) Config {
	c.Verbosity = v
	return c
}

// WithLogFile sets the debug log file path.
func (c Config) WithLogFile(path string) Config {
	c.LogFile = path
	return c
}

// WithConsole sets the console writer.
func (c Config) WithConsole(w io.Writer) Config {
	c.Console = w
	return c
}

// DefaultLogFile returns ~/.local/share/synadm/debug.log, honouring
// XDG_DATA_HOME when set.
func DefaultLogFile() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "synadm", "debug.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "synadm", "debug.log")
}
