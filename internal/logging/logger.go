// Package logging builds the slog logger of the command line tools.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lucasew/diskcache/internal/config"
)

// New builds a logger from cfg. When the log file cannot be prepared it falls
// back to stderr and says so through the returned logger.
func New(cfg config.LogConfig, level slog.Level) (*slog.Logger, io.Closer) {
	output, closer, outErr := buildOutput(cfg)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	logger := slog.New(handler)

	if outErr != nil {
		logger.Warn("Falling back to stderr for logs", "path", cfg.File, "error", outErr)
	}
	return logger, closer
}

// Setup builds the logger and installs it as the slog default.
func Setup(cfg config.LogConfig, level slog.Level) io.Closer {
	logger, closer := New(cfg, level)
	slog.SetDefault(logger)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func buildOutput(cfg config.LogConfig) (io.Writer, io.Closer, error) {
	if cfg.File == "" {
		return os.Stderr, nopCloser{}, nil
	}

	dir := filepath.Dir(cfg.File)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stderr, nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	return rotator, rotator, nil
}
