package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// jsonMarshal is a variable for dependency injection in tests.
var jsonMarshal = json.Marshal

// Log file names created by SetupLogging inside a scenario's logs
// directory.
const (
	ScenarioLogFile  = "scenario.log"
	APIRequestsFile  = "api_requests.log"
	APIResponsesFile = "api_responses.log"
)

// LogEntry represents a single JSON log entry.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LoggerConfig configures the JSONLogger.
type LoggerConfig struct {
	OutputPath     string
	APIRequestLog  string
	APIResponseLog string
	Level          LogLevel
	Fields         map[string]any
}

// jsonSink is shared by a JSONLogger and every logger derived from
// it with WithFields, so they serialize writes and close together.
type jsonSink struct {
	mu             sync.Mutex
	output         io.Writer
	apiRequestLog  io.Writer
	apiResponseLog io.Writer
	closed         bool
}

// JSONLogger implements Logger with JSON Lines output.
type JSONLogger struct {
	sink   *jsonSink
	level  LogLevel
	fields map[string]any
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// NewJSONLogger creates a new JSON logger. If OutputPath is
// empty, logs are written to stdout.
func NewJSONLogger(config LoggerConfig) (*JSONLogger, error) {
	sink := &jsonSink{output: os.Stdout}
	if config.OutputPath != "" {
		f, err := openAppend(config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		sink.output = f
	}
	if config.APIRequestLog != "" {
		f, err := openAppend(config.APIRequestLog)
		if err != nil {
			sink.close()
			return nil, fmt.Errorf("open API request log: %w", err)
		}
		sink.apiRequestLog = f
	}
	if config.APIResponseLog != "" {
		f, err := openAppend(config.APIResponseLog)
		if err != nil {
			sink.close()
			return nil, fmt.Errorf("open API response log: %w", err)
		}
		sink.apiResponseLog = f
	}

	fields := make(map[string]any, len(config.Fields))
	for k, v := range config.Fields {
		fields[k] = v
	}
	return &JSONLogger{sink: sink, level: config.Level, fields: fields}, nil
}

// newJSONLoggerTo builds a logger over arbitrary writers.
func newJSONLoggerTo(out, req, resp io.Writer, level LogLevel) *JSONLogger {
	return &JSONLogger{
		sink: &jsonSink{
			output:         out,
			apiRequestLog:  req,
			apiResponseLog: resp,
		},
		level:  level,
		fields: map[string]any{},
	}
}

func (s *jsonSink) writeLine(w io.Writer, v any) {
	if w == nil {
		return
	}
	data, err := jsonMarshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fmt.Fprintln(w, string(data))
}

func (s *jsonSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, w := range []io.Writer{s.output, s.apiRequestLog, s.apiResponseLog} {
		if w == nil || w == os.Stdout || w == os.Stderr {
			continue
		}
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (l *JSONLogger) log(level LogLevel, msg string, fields ...Field) {
	if level < l.level {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}
	if len(l.fields)+len(fields) > 0 {
		entry.Fields = make(map[string]any, len(l.fields)+len(fields))
		for k, v := range l.fields {
			entry.Fields[k] = v
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}
	l.sink.writeLine(l.sink.output, entry)
}

// Info logs an informational message.
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields...)
}

// Debug logs a debug message.
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields...)
}

// WithFields returns a Logger sharing the same files with
// additional default fields.
func (l *JSONLogger) WithFields(fields ...Field) Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return &JSONLogger{sink: l.sink, level: l.level, fields: merged}
}

// LogAPIRequest appends the request to the request log, if any.
func (l *JSONLogger) LogAPIRequest(request APIRequestLog) {
	l.sink.writeLine(l.sink.apiRequestLog, request)
}

// LogAPIResponse appends the response to the response log, if any.
func (l *JSONLogger) LogAPIResponse(response APIResponseLog) {
	l.sink.writeLine(l.sink.apiResponseLog, response)
}

// Close closes all underlying files. Loggers derived with
// WithFields stop writing as well. Safe to call repeatedly.
func (l *JSONLogger) Close() error {
	return l.sink.close()
}

// SetupLogging opens scenario.log, api_requests.log and
// api_responses.log inside logsDir.
func SetupLogging(logsDir string, verbose bool) (*JSONLogger, error) {
	level := LevelInfo
	if verbose {
		level = LevelDebug
	}
	return NewJSONLogger(LoggerConfig{
		OutputPath:     filepath.Join(logsDir, ScenarioLogFile),
		APIRequestLog:  filepath.Join(logsDir, APIRequestsFile),
		APIResponseLog: filepath.Join(logsDir, APIResponsesFile),
		Level:          level,
	})
}
