// Package logging builds the service's slog logger and its HTTP access log.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yourorg/vehicle-search/internal/config"
)

// New returns a logger for cfg and a closer for any file it opened. Output
// always goes to stderr; cfg.File adds a size-rotated file.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, file)
		closer = file
	}
	return slog.New(NewHandler(w, cfg.Format, ParseLevel(cfg.Level))), closer
}

// Setup builds the logger for cfg and installs it as the slog default.
func Setup(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	logger, closer := New(cfg)
	slog.SetDefault(logger)
	return logger, closer
}

func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps debug|info|warn|error to a level; anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
