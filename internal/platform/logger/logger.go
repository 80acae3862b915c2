package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/classifier-worker/internal/ciutil"
	"github.com/phrazzld/classifier-worker/internal/config"
)

// ParseLevel maps a configured level name to a slog.Level (case-insensitive).
// The boolean result is false when the name is not recognised.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup initializes the process logger from the server configuration and
// installs it as the slog default. Output is JSON on stdout, or text when
// running under CI so that test runners stay readable.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	logger := New(os.Stdout, cfg.LogLevel, ciutil.IsCI())
	slog.SetDefault(logger)
	return logger, nil
}

// New builds a logger writing to out at the given level.
func New(out io.Writer, levelName string, text bool) *slog.Logger {
	level, ok := ParseLevel(levelName)
	if !ok {
		// Use a temporary logger to report the fallback.
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", levelName,
			"default_level", "info")
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}
