package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLevel converts a configuration string such as "debug" or "WARN" into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Output formats accepted by Init.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	loggerMu      sync.RWMutex
	defaultLogger *slog.Logger
)

// Init configures the package logger. It should be called once at startup;
// later calls replace the logger (tests rely on this).
func Init(level LogLevel, format string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: level.SlogLevel(),
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	logger := slog.New(handler)

	loggerMu.Lock()
	defaultLogger = logger
	loggerMu.Unlock()

	slog.SetDefault(logger)
}

// Logger returns the configured logger, or slog's default when Init was never called.
func Logger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	logger := Logger()
	if !logger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// AuditEvent describes a security-relevant action on session credentials.
// It must never carry token values.
type AuditEvent struct {
	// Action is what happened, e.g. "credential_stored" or "credential_cleared".
	Action string
	// Outcome is "success" or "failure".
	Outcome string
	// Subject identifies the user (email or id), if known.
	Subject string
	// Backend names the persistence backend involved.
	Backend string
	// Reason is an optional short explanation.
	Reason string
	// Err is set when Outcome is "failure".
	Err error
}

// Audit logs a security audit line at INFO level (WARN on failure) with a
// SECURITY_AUDIT prefix so log pipelines can filter on it.
func Audit(ev AuditEvent) {
	level := slog.LevelInfo
	if ev.Outcome == "failure" {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event", ev.Action),
		slog.String("outcome", ev.Outcome),
		slog.Time("at", time.Now().UTC()),
	}
	if ev.Subject != "" {
		attrs = append(attrs, slog.String("subject", ev.Subject))
	}
	if ev.Backend != "" {
		attrs = append(attrs, slog.String("backend", ev.Backend))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}

	Logger().LogAttrs(context.Background(), level, "SECURITY_AUDIT: "+ev.Action, attrs...)
}
