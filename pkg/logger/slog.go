package logger

import (
	"io"
	"log/slog"
	"os"
)

type SlogEnvironment string

const (
	EnvLocal SlogEnvironment = "local"
	EnvDev   SlogEnvironment = "dev"
	EnvProd  SlogEnvironment = "prod"
)

func SetupLogger(env string) *slog.Logger {
	return NewSlogLogger(os.Stdout, SlogEnvironment(env))
}

func NewSlogLogger(w io.Writer, env SlogEnvironment) *slog.Logger {
	var handler slog.Handler

	switch env {
	case EnvLocal:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	case EnvDev:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return slog.New(handler)
}

// Discard is used by tests that do not assert on log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
