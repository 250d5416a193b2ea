package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey struct{}

var discardLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// New creates a JSON structured logger that writes to stdout.
func New() *slog.Logger {
	return NewWithWriter(os.Stdout, slog.LevelInfo)
}

func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func NewContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

func FromContext(ctx context.Context) (*slog.Logger, bool) {
	log, ok := ctx.Value(contextKey{}).(*slog.Logger)
	return log, ok && log != nil
}

// FromContextOr prefers the context logger, then fallback, then a logger
// that discards everything.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := FromContext(ctx); ok {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return discardLogger
}

func FromContextOrDiscard(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, nil)
}

// With scopes the context logger with args. A context without a logger is
// returned unchanged.
func With(ctx context.Context, args ...any) context.Context {
	log, ok := FromContext(ctx)
	if !ok {
		return ctx
	}
	return NewContext(ctx, log.With(args...))
}
