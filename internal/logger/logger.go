// Package logger builds the application's structured slog.Logger and
// carries request-scoped loggers through a context.Context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects verbosity and output format. Empty fields are derived
// from Env: dev logs text at DEBUG, staging JSON at DEBUG, and everything
// else JSON at INFO.
type Config struct {
	Service string
	Version string
	Env     string
	Level   string // "debug", "info", "warn", "error"
	Format  string // "text" or "json"
}

// New returns a configured *slog.Logger writing to stdout and installs it
// as the slog default.
func New(cfg Config) *slog.Logger {
	logger := NewWithWriter(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// NewWithWriter is New without touching the global default, for tests.
func NewWithWriter(cfg Config, w io.Writer) *slog.Logger {
	level, format := defaultsFor(cfg.Env)
	if cfg.Level != "" {
		level = parseLevel(cfg.Level)
	}
	if cfg.Format != "" {
		format = strings.ToLower(cfg.Format)
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     level,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)
}

func defaultsFor(env string) (slog.Level, string) {
	switch env {
	case "prod":
		return slog.LevelInfo, "json"
	case "staging":
		return slog.LevelDebug, "json"
	default: // "dev" and anything unrecognised
		return slog.LevelDebug, "text"
	}
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
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

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
