package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Text handler on stdout; components receive
// it via constructor injection so tests can swap in a discard handler.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
