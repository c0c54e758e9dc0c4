// Package log is the thin zap wrapper used throughout the runtime for
// structured logging, matching the teacher's logging idiom.
package log

import (
	"go.uber.org/zap"
)

// Logger wraps a *zap.Logger with the few conveniences the runtime needs:
// a constructor for the two deployment modes, and a bridge for the guest's
// console_log ("_log") import, which carries its own severity and
// call-site info picked at the guest's compile time rather than Go's.
type Logger struct {
	*zap.Logger
}

// New builds a production (JSON, info-level) logger.
func New() *Logger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return &Logger{l}
}

// NewDevelopment builds a human-readable, debug-level logger. Job.Debug
// does not select it; it is used only where a caller passes it in, for
// example as engine.Config.Logger.
func NewDevelopment() *Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		l = zap.NewNop()
	}
	return &Logger{l}
}

// Guest logs a message the guest program emitted via its console_log
// import, tagging it with the program-supplied level and source location
// so it's distinguishable from the host's own log lines.
func (l *Logger) Guest(level, msg, lineInfo string) {
	fields := []zap.Field{zap.String("guest_level", level), zap.String("line_info", lineInfo)}
	switch level {
	case "error", "Error", "ERROR":
		l.Error(msg, fields...)
	case "warn", "Warn", "WARN", "warning", "Warning":
		l.Warn(msg, fields...)
	case "debug", "Debug", "DEBUG":
		l.Debug(msg, fields...)
	case "trace", "Trace", "TRACE":
		l.Debug(msg, fields...)
	default:
		l.Info(msg, fields...)
	}
}
