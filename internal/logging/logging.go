// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the process-wide slog logger. Logs go to
// stderr as text, or to a size-rotated JSON file when a file is configured.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
)

// level is shared by every handler Setup creates so SetLevel takes effect
// without rebuilding the logger.
var level = new(slog.LevelVar)

// ParseLevel converts a level name to slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLevel changes the minimum level of loggers built by Setup.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Setup builds a logger from cfg, installs it as the slog default, and
// returns it with a closer for the log file (a no-op for stderr).
func Setup(cfg types.LogConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	l, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	level.Set(l)
	opts := &slog.HandlerOptions{Level: level}

	var (
		handler slog.Handler
		closer  io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = defaultMaxSizeMB
		}
		backups := cfg.MaxBackups
		if backups <= 0 {
			backups = defaultMaxBackups
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: backups,
			LocalTime:  true,
		}
		handler = slog.NewJSONHandler(rotator, opts)
		closer = rotator
	} else {
		handler = slog.NewTextHandler(stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
