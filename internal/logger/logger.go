// Package logger builds the process logger and carries request-scoped
// loggers through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// InitLogger returns a colored text logger for dev and test and a JSON
// logger otherwise, and installs it as the slog default.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	l := New(os.Stderr, level, environment)
	slog.SetDefault(l)
	return l
}

// New builds a logger writing to w.
func New(w io.Writer, level slog.Level, environment string) *slog.Logger {
	var h slog.Handler
	switch environment {
	case "dev", "test":
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}

// ParseLogLevel maps debug, info, warn and error to slog levels. Anything
// else is info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	attrsKey
)

// logAttrs collects attributes added while a request is handled; they are
// emitted with the final request log line.
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextWithLogger returns a context carrying l.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, loggerKey, l)
	if _, ok := ctx.Value(attrsKey).(*logAttrs); !ok {
		ctx = context.WithValue(ctx, attrsKey, &logAttrs{})
	}
	return ctx
}

// ContextRequestLogger returns the request logger, or the default logger
// outside a request.
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// ContextWithLogAttrs records attrs for the final request log line. It is
// a no-op outside a request.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	if a, ok := ctx.Value(attrsKey).(*logAttrs); ok {
		a.mu.Lock()
		a.attrs = append(a.attrs, attrs...)
		a.mu.Unlock()
	}
}

// ContextLogAttrs returns the attributes recorded for the request.
func ContextLogAttrs(ctx context.Context) []slog.Attr {
	a, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]slog.Attr(nil), a.attrs...)
}

// KeyID shortens an API key for logging.
func KeyID(apiKey string) string {
	if len(apiKey) <= 8 {
		return apiKey
	}
	return apiKey[:8]
}
