// Package obs contains observability utilities such as logging.
package obs

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the global structured logger used by the service.
//
// It falls back to slog's default logger until InitLogger runs, so packages
// can log from tests without initialising anything.
var Logger = slog.Default()

// InitLogger initializes the global Logger with a JSON handler at the given
// level (debug, info, warn or error; anything else means info).
func InitLogger(level string) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(level)})
	Logger = slog.New(h).With("service", "toko-sayur-pos")
}

// ParseLevel maps a LOG_LEVEL value onto a slog level.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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
