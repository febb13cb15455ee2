// Package logging builds the zap loggers handed to every pipeline stage.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field names shared across stages.
const (
	FieldRunID     = "run_id"
	FieldComponent = "component"
)

// Options selects the logger's encoding and level.
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error").
	// Empty means info.
	Level string
	// JSON selects production JSON output instead of the console encoder.
	JSON bool
	// Output defaults to stderr so stdout stays free for command output.
	Output io.Writer
}

// New builds a sugared logger.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", opts.Level)
		}
		level = l
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return zap.New(core).Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return Nop()
	}
	return l
}

type contextKey struct{}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return Nop()
}

// Component returns a child logger tagged with a component name.
func Component(parent *zap.SugaredLogger, name string) *zap.SugaredLogger {
	return OrNop(parent).With(FieldComponent, name)
}
