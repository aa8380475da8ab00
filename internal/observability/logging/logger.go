package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MatusOllah/slogcolor"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

func NewJSONLogger(service, level string) *slog.Logger {
	return NewLogger(os.Stdout, service, level, FormatJSON)
}

// NewLogger builds a JSON logger, or a colored one for the console format.
func NewLogger(w io.Writer, service, level, format string) *slog.Logger {
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole:
		opts := *slogcolor.DefaultOptions
		opts.Level = parseLevel(level)
		opts.TimeFormat = time.Kitchen
		handler = slogcolor.NewHandler(w, &opts)
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: parseLevel(level),
		})
	}
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
