// Package logging configures the zap logger used by synadm.
//
// Two cores are teed together: a console core on stderr whose level follows
// the -v count, and a JSON core writing everything at debug level to a log
// file so that a failed run can be inspected afterwards.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with synadm's console and file cores.
type Logger struct {
	*zap.Logger
	config Config
	file   *os.File
}

// New creates a new logger with the provided configuration. A log file that
// cannot be opened is reported on the console and otherwise ignored.
func New(cfg Config) (*Logger, error) {
	if cfg.Console == nil {
		cfg.Console = os.Stderr
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(getEncoderConfig(true)),
		zapcore.AddSync(cfg.Console),
		consoleLevel(cfg.Verbosity),
	)
	cores := []zapcore.Core{consoleCore}

	var file *os.File
	if cfg.LogFile != "" {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(cfg.Console, "warning: debug log disabled: %v\n", err)
		} else {
			file = f
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(getEncoderConfig(false)),
				zapcore.AddSync(f),
				zapcore.DebugLevel,
			))
		}
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.DPanicLevel))

	return &Logger{
		Logger: logger,
		config: cfg,
		file:   file,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a child logger, e.g. "audit" or "client".
func (l *Logger) Named(name string) *zap.Logger {
	return l.Logger.Named(name)
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func consoleLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity >= 2:
		return zapcore.DebugLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

// getEncoderConfig returns the console or file encoder config.
func getEncoderConfig(console bool) zapcore.EncoderConfig {
	if console {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return cfg
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
