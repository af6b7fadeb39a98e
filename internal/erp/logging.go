package erp

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenLogger returns the logger described by the config and a function that
// closes its file. With no LogFile configured logging is discarded, since
// the TUI owns stdout and stderr.
func OpenLogger(config *Config) (*slog.Logger, func() error, error) {
	if config.LogFile == "" {
		return discardLogger(), func() error { return nil }, nil
	}

	level, err := parseLogLevel(config.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, f.Close, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
