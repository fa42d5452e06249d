// Package telemetry configures structured logging and OpenTelemetry export.
package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 28
)

type LogConfig struct {
	Level  string
	Format string
	// File switches output to a rotating file.
	File string
	// Writer receives logs when File is empty. Defaults to stdout.
	Writer io.Writer
}

// InitLogger installs the default slog logger. The returned closer releases
// the log file, if any.
func InitLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	path := strings.TrimSpace(cfg.File)
	if path == "" {
		out := cfg.Writer
		if out == nil {
			out = os.Stdout
		}
		logger := slog.New(newHandler(cfg.Format, out, opts))
		slog.SetDefault(logger)
		return logger, io.NopCloser(nil), nil
	}

	writer, err := rotatingFile(path)
	if err != nil {
		logger := slog.New(newHandler(cfg.Format, io.Discard, opts))
		slog.SetDefault(logger)
		return logger, io.NopCloser(nil), err
	}
	logger := slog.New(newHandler(cfg.Format, writer, opts))
	slog.SetDefault(logger)
	return logger, writer, nil
}

func rotatingFile(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("telemetry: create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}, nil
}

func parseLogLevel(level string) slog.Level {
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

func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return slog.NewTextHandler(out, opts)
	default:
		return slog.NewJSONHandler(out, opts)
	}
}
