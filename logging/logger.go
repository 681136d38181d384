package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger defines the minimal logging interface for flowbudget.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewSlogLogger creates a Logger writing structured output to stdout.
// Format is "json" or "text"; anything else defaults to json.
func NewSlogLogger(level LogLevel, format string) Logger {
	return NewSlogLoggerTo(os.Stdout, level, format)
}

// NewSlogLoggerTo creates a Logger writing to the given writer.
func NewSlogLoggerTo(w io.Writer, level LogLevel, format string) Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return NewSlogAdapter(slog.New(handler))
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// OrNoOp returns l, substituting a NoOpLogger when l is nil. Components call
// this once at construction so logging call sites never need a nil check.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// FlowLogger wraps a Logger with domain specific helpers so admission
// decisions, runtime calls and flow runs log a consistent attribute set.
type FlowLogger struct {
	Logger
}

// NewFlowLogger wraps the given logger (NoOp when nil).
func NewFlowLogger(l Logger) *FlowLogger {
	return &FlowLogger{Logger: OrNoOp(l)}
}

// LogAdmission records a budget guard decision for one agent prompt.
func (l *FlowLogger) LogAdmission(agent string, estimated, limit int, admitted, warned bool) {
	switch {
	case !admitted:
		l.Warn("budget.rejected", "agent", agent, "estimated_tokens", estimated, "hard_limit", limit)
	case warned:
		l.Warn("budget.warning", "agent", agent, "estimated_tokens", estimated, "warning_threshold", limit)
	default:
		l.Debug("budget.admitted", "agent", agent, "estimated_tokens", estimated)
	}
}

// LogRuntimeCall records latency, token usage and outcome of one model call.
func (l *FlowLogger) LogRuntimeCall(agent, modelID string, tokens int, dur time.Duration, err error) {
	if err != nil {
		l.Error("runtime.call.failed", "agent", agent, "model", modelID, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.Info("runtime.call.completed", "agent", agent, "model", modelID, "total_tokens", tokens, "duration_ms", dur.Milliseconds())
}

// LogFlowRun records aggregate metrics for one flow execution.
func (l *FlowLogger) LogFlowRun(flowName string, steps int, totalTokens int, cost string, dur time.Duration, err error) {
	if err != nil {
		l.Error("flow.run.failed", "flow", flowName, "steps", steps, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.Info("flow.run.completed", "flow", flowName, "steps", steps, "total_tokens", totalTokens, "cost", cost, "duration_ms", dur.Milliseconds())
}
