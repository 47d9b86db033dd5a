// Logging setup shared by all packages.
package utils

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
)

var (
	logger   *slog.Logger
	loggerMu sync.Mutex
)

// InitLogger configures the process-wide logger with the given level
// ("debug", "info", "warn", "error"; case-insensitive). Unknown values
// fall back to info. Safe to call more than once; the last call wins.
func InitLogger(level string) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      ParseLogLevel(level),
		TimeFormat: "2006-01-02 15:04:05",
	}))
	slog.SetDefault(logger)
}

// GetLogger returns the shared logger, initializing it with defaults if
// InitLogger has not been called yet.
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: "2006-01-02 15:04:05",
		}))
		slog.SetDefault(logger)
	}
	return logger
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(level string) slog.Level {
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
