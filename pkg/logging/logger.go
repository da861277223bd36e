package logging

import (
	"time"
)

// Logger is the logging interface used across the library. It decouples the
// streaming core from the concrete backend so tests can run silent and
// applications can plug in their own sink.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithFields returns a derived logger that attaches the given fields to
	// every entry it emits.
	WithFields(fields ...Field) Logger
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors for common types.

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// nopLogger discards everything. Used as the default in tests and when the
// caller passes no logger.
type nopLogger struct{}

// NewNop returns a logger that discards all entries.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field)       {}
func (nopLogger) Info(string, ...Field)        {}
func (nopLogger) Warn(string, ...Field)        {}
func (nopLogger) Error(string, ...Field)       {}
func (n nopLogger) WithFields(...Field) Logger { return n }
