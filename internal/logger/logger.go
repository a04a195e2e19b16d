package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/campus-finance-ledger/internal/config"
)

// NewLogger builds the process-wide slog logger. Output is JSON on stdout
// so the API and the reconciler log in the same shape. Source locations are
// only added at debug level; they are noise in production volumes.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	log := slog.New(handler)
	log.Info("logger initialized", "level", level)
	return log
}

// parseLevel maps the configured level name to slog, defaulting to info for
// unknown or empty values.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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
