package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger backs the Logger interface with uber-go/zap.
type zapLogger struct {
	logger *zap.Logger
	fields []Field
}

// Option configures the zap-backed logger.
type Option func(*options)

type options struct {
	development bool
	level       *zapcore.Level
	outputPaths []string
}

// WithDevelopmentMode switches to the human-readable console encoder.
func WithDevelopmentMode() Option {
	return func(o *options) { o.development = true }
}

// WithDebugLevel lowers the minimum level to debug.
func WithDebugLevel() Option {
	return func(o *options) {
		level := zapcore.DebugLevel
		o.level = &level
	}
}

// WithLevel sets an explicit minimum level ("debug", "info", "warn", "error").
func WithLevel(level string) Option {
	return func(o *options) {
		var zl zapcore.Level
		switch level {
		case "debug":
			zl = zapcore.DebugLevel
		case "warn":
			zl = zapcore.WarnLevel
		case "error":
			zl = zapcore.ErrorLevel
		default:
			zl = zapcore.InfoLevel
		}
		o.level = &zl
	}
}

// WithOutputPaths redirects log output (zap path syntax, e.g. "stdout" or a
// file path).
func WithOutputPaths(paths ...string) Option {
	return func(o *options) { o.outputPaths = paths }
}

// NewLogger creates a zap-backed Logger. Falls back to a nop logger if the
// zap build fails, so callers never need to handle a construction error.
func NewLogger(opts ...Option) Logger {
	o := &options{outputPaths: []string{"stdout"}}
	for _, opt := range opts {
		opt(o)
	}

	config := zap.NewProductionConfig()
	if o.development {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = o.outputPaths
	if o.level != nil {
		config.Level = zap.NewAtomicLevelAt(*o.level)
	}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return NewNop()
	}
	return &zapLogger{logger: logger}
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	if ce := l.logger.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(l.convert(fields)...)
	}
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	if ce := l.logger.Check(zapcore.InfoLevel, msg); ce != nil {
		ce.Write(l.convert(fields)...)
	}
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	if ce := l.logger.Check(zapcore.WarnLevel, msg); ce != nil {
		ce.Write(l.convert(fields)...)
	}
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	if ce := l.logger.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(l.convert(fields)...)
	}
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	derived := &zapLogger{logger: l.logger}
	derived.fields = make([]Field, 0, len(l.fields)+len(fields))
	derived.fields = append(derived.fields, l.fields...)
	derived.fields = append(derived.fields, fields...)
	return derived
}

func (l *zapLogger) convert(fields []Field) []zap.Field {
	all := make([]zap.Field, 0, len(l.fields)+len(fields))
	for _, f := range l.fields {
		all = append(all, zap.Any(f.Key, f.Value))
	}
	for _, f := range fields {
		all = append(all, zap.Any(f.Key, f.Value))
	}
	return all
}

// Sync flushes buffered entries on the underlying zap logger, if any.
func Sync(l Logger) error {
	if zl, ok := l.(*zapLogger); ok {
		return zl.logger.Sync()
	}
	return nil
}
