package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// ConsoleOptions configures a ConsoleLogger.
type ConsoleOptions struct {
	// Output defaults to os.Stderr.
	Output io.Writer
	// Prefix names the component, e.g. "runner" or "worker-2".
	Prefix string
	// Verbose enables debug output.
	Verbose bool
	// TimeFormat defaults to 15:04:05.
	TimeFormat string
	// NoTimestamp drops the timestamp column.
	NoTimestamp bool
}

// ConsoleLogger writes leveled, colored key/value lines to a
// terminal through charmbracelet/log.
type ConsoleLogger struct {
	l *log.Logger
}

// NewConsoleLogger creates a console logger on stderr. When
// verbose is true, debug messages are emitted.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewConsoleLoggerWithOptions(ConsoleOptions{Verbose: verbose})
}

// NewConsoleLoggerWithOptions creates a console logger from opts.
func NewConsoleLoggerWithOptions(opts ConsoleOptions) *ConsoleLogger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	tf := opts.TimeFormat
	if tf == "" {
		tf = time.TimeOnly
	}
	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	return &ConsoleLogger{l: log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		TimeFormat:      tf,
		ReportTimestamp: !opts.NoTimestamp,
	})}
}

func keyvals(fields []Field) []any {
	if len(fields) == 0 {
		return nil
	}
	kv := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}

// Info logs an informational message.
func (c *ConsoleLogger) Info(msg string, fields ...Field) {
	c.l.Info(msg, keyvals(fields)...)
}

// Warn logs a warning message.
func (c *ConsoleLogger) Warn(msg string, fields ...Field) {
	c.l.Warn(msg, keyvals(fields)...)
}

// Error logs an error message.
func (c *ConsoleLogger) Error(msg string, fields ...Field) {
	c.l.Error(msg, keyvals(fields)...)
}

// Debug logs a debug message only if verbose is enabled.
func (c *ConsoleLogger) Debug(msg string, fields ...Field) {
	c.l.Debug(msg, keyvals(fields)...)
}

// WithFields returns a Logger with additional default fields.
func (c *ConsoleLogger) WithFields(fields ...Field) Logger {
	return &ConsoleLogger{l: c.l.With(keyvals(fields)...)}
}

// WithPrefix returns a copy of the logger with a component prefix.
func (c *ConsoleLogger) WithPrefix(prefix string) *ConsoleLogger {
	return &ConsoleLogger{l: c.l.WithPrefix(prefix)}
}

// LogAPIRequest logs a one-line request summary at debug level.
func (c *ConsoleLogger) LogAPIRequest(request APIRequestLog) {
	c.l.Debug("api request",
		"request_id", request.RequestID,
		"method", request.Method,
		"url", request.URL,
	)
}

// LogAPIResponse logs a one-line response summary at debug level.
func (c *ConsoleLogger) LogAPIResponse(response APIResponseLog) {
	c.l.Debug("api response",
		"request_id", response.RequestID,
		"status", response.StatusCode,
		"time_ms", response.ResponseTimeMs,
	)
}

// Close is a no-op for ConsoleLogger.
func (c *ConsoleLogger) Close() error { return nil }
