// Package logging builds the process logger: text records on stdout, and
// the same records in a rotating file when one is configured.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"lagrace/internal/config"
)

// New returns the logger and a closer for its file sink.
func New(cfg config.LogConfig, quiet bool) (*slog.Logger, io.Closer) {
	var sinks []io.Writer
	if !quiet {
		sinks = append(sinks, os.Stdout)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.File), 0o755)
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		sinks = append(sinks, file)
		closer = file
	}
	if len(sinks) == 0 {
		sinks = append(sinks, io.Discard)
	}

	handler := slog.NewTextHandler(io.MultiWriter(sinks...), &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return slog.New(handler), closer
}

func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
