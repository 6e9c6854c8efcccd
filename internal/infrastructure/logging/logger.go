package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/orehall/ironpin-core/internal/infrastructure/config"
)

// Logger is the structured logger used across IronPin. It embeds
// slog.Logger, so the slog key-value API (Debug, Info, Warn, Error) is
// available directly, and every line carries the service and version
// fields.
//
// Thread Safety: safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the configuration:
// level filtering, text or JSON encoding, and the output destination.
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return build(w, cfg, version)
}

// Default returns the bootstrap logger used before the configuration
// file is loaded: JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// With returns a child logger carrying extra default attributes.
//
//	busLog := log.With("component", "modulebus")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// build assembles the handler chain onto an explicit writer. Split from
// New so tests can capture output.
func build(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: levelFor(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	base := slog.New(handler).With(
		"service", "ironpin",
		"version", version,
	)
	return &Logger{Logger: base}
}

// levelFor maps a configured level name onto slog's scale. Anything
// unrecognised falls back to info.
func levelFor(level string) slog.Level {
	switch strings.ToLower(level) {
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
