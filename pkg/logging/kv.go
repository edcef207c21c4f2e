package logging

import "fmt"

// KVLogger adapts a Logger to the key/value call style used by
// scenarios and the runner: Info("msg", "key", value, ...).
type KVLogger struct {
	inner Logger
}

// KV wraps l. A nil l yields a logger that discards everything.
func KV(l Logger) *KVLogger {
	if l == nil {
		l = NullLogger{}
	}
	return &KVLogger{inner: l}
}

// Unwrap returns the underlying structured logger.
func (k *KVLogger) Unwrap() Logger { return k.inner }

func (k *KVLogger) Info(msg string, args ...any) {
	k.inner.Info(msg, FieldsFromKV(args...)...)
}

func (k *KVLogger) Warn(msg string, args ...any) {
	k.inner.Warn(msg, FieldsFromKV(args...)...)
}

func (k *KVLogger) Error(msg string, args ...any) {
	k.inner.Error(msg, FieldsFromKV(args...)...)
}

func (k *KVLogger) Debug(msg string, args ...any) {
	k.inner.Debug(msg, FieldsFromKV(args...)...)
}

func (k *KVLogger) Close() error { return k.inner.Close() }

func toString(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
