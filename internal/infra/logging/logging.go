package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup sets slog's default logger to write to stdout at the given level.
// format is "json" (default) or "text".
func Setup(level slog.Level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)

	return logger
}

// SetupJSON sets slog's default logger to use JSON output at the given level.
func SetupJSON(level slog.Level) {
	Setup(level, "json")
}

func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}
