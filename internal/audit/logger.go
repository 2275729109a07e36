// Package audit provides audit logging for privileged operations.
//
// Purpose:
//
//	Emit structured audit entries for every privileged homeserver operation
//	(user deactivation, password reset, room deletion, history purge, media
//	quarantine and deletion, server notices, registration token deletion)
//	with the admin identity, command, parameters (masked where sensitive),
//	outcome and duration.
//
// Dependencies:
//   - go.uber.org/zap: entries are written through a logger named "audit",
//     so they land in the debug log file alongside request logs
//   - internal/logging: masking of password and token parameters
package audit

import (
	"time"

	"go.uber.org/zap"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/logging"
)

// Outcomes recorded for an operation.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeAborted = "aborted"
)

// Logger emits audit logs for privileged operations.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new audit logger on top of base.
func NewLogger(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{logger: base.Named("audit")}
}

// Operation represents a privileged operation to be logged.
type Operation struct {
	Type         string                 // user_deactivate, room_delete, history_purge, etc.
	UserIdentity string                 // admin user from the configuration
	Command      string                 // full command executed
	Parameters   map[string]interface{} // command parameters (will be masked)
	Outcome      string                 // success, failure, aborted
	Duration     time.Duration          // operation duration
	Error        error                  // error if operation failed
}

// LogOperation logs a privileged operation with all required fields.
func (l *Logger) LogOperation(op Operation) {
	fields := []zap.Field{
		zap.String("operation", op.Type),
		zap.String("command", op.Command),
		zap.String("outcome", op.Outcome),
	}
	if op.UserIdentity != "" {
		fields = append(fields, zap.String("user_identity", op.UserIdentity))
	}
	if len(op.Parameters) > 0 {
		fields = append(fields, zap.Any("parameters", logging.RedactFields(op.Parameters)))
	}
	if op.Duration > 0 {
		fields = append(fields, zap.Duration("duration", op.Duration))
	}

	if op.Error != nil {
		l.logger.Warn("privileged operation failed", append(fields, zap.Error(op.Error))...)
		return
	}
	l.logger.Info("privileged operation", fields...)
}

// Track runs fn and records its outcome as op. A nil error from fn is a
// success unless op.Outcome was already set (e.g. aborted).
func (l *Logger) Track(op Operation, fn func() error) error {
	start := time.Now()
	err := fn()
	op.Duration = time.Since(start)
	op.Error = err
	switch {
	case err != nil:
		op.Outcome = OutcomeFailure
	case op.Outcome == "":
		op.Outcome = OutcomeSuccess
	}
	l.LogOperation(op)
	return err
}
