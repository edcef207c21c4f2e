package logging

import (
	"strings"

	"digital.vasic.agentprobe/pkg/env"
)

// RedactingLogger is a decorator that masks known secrets (API
// tokens read from .env, URL passwords, auth headers) before they
// reach the inner logger.
type RedactingLogger struct {
	inner   Logger
	secrets []string
}

// NewRedactingLogger creates a logger that redacts the given
// secrets from all messages and string field values. Secrets of
// four characters or fewer are ignored.
func NewRedactingLogger(inner Logger, secrets ...string) *RedactingLogger {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if len(s) > 4 {
			kept = append(kept, s)
		}
	}
	return &RedactingLogger{inner: inner, secrets: kept}
}

func (r *RedactingLogger) redact(msg string) string {
	for _, secret := range r.secrets {
		msg = strings.ReplaceAll(msg, secret, maskValue(secret))
	}
	return msg
}

// maskValue keeps the first four characters.
func maskValue(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

func (r *RedactingLogger) redactFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		if s, ok := f.Value.(string); ok {
			out[i] = Field{Key: f.Key, Value: r.redact(s)}
			continue
		}
		out[i] = f
	}
	return out
}

func (r *RedactingLogger) Info(msg string, fields ...Field) {
	r.inner.Info(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Warn(msg string, fields ...Field) {
	r.inner.Warn(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Error(msg string, fields ...Field) {
	r.inner.Error(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Debug(msg string, fields ...Field) {
	r.inner.Debug(r.redact(msg), r.redactFields(fields)...)
}

// WithFields returns a RedactingLogger wrapping a new inner
// logger with the given fields applied.
func (r *RedactingLogger) WithFields(fields ...Field) Logger {
	return &RedactingLogger{
		inner:   r.inner.WithFields(r.redactFields(fields)...),
		secrets: r.secrets,
	}
}

// LogAPIRequest masks headers, URL credentials and body secrets.
func (r *RedactingLogger) LogAPIRequest(request APIRequestLog) {
	if request.Headers != nil {
		request.Headers = env.RedactHeaders(request.Headers)
	}
	request.URL = r.redact(env.RedactURL(request.URL))
	request.Body = r.redact(request.Body)
	r.inner.LogAPIRequest(request)
}

// LogAPIResponse masks headers and body secrets.
func (r *RedactingLogger) LogAPIResponse(response APIResponseLog) {
	if response.Headers != nil {
		response.Headers = env.RedactHeaders(response.Headers)
	}
	response.BodyPreview = r.redact(response.BodyPreview)
	r.inner.LogAPIResponse(response)
}

// Close closes the inner logger.
func (r *RedactingLogger) Close() error {
	return r.inner.Close()
}
