// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration knobs for the HTTP server and sessions.
type Config struct {
	HTTPAddr             string
	ShutdownTimeout      time.Duration
	LogLevel             string
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration
	MaxSessions          int
	MailboxSize          int
	WSWriteTimeout       time.Duration
	// WSAllowedOrigins lists the Origin values allowed to open a snapshot
	// stream. Empty means same-origin only; "*" allows any origin.
	WSAllowedOrigins     []string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func listenv(key string) []string {
	var out []string
	for _, v := range strings.Split(getenv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:      durenvs("SHUTDOWN_TIMEOUT", 15),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		SessionIdleTTL:       durenvs("SESSION_IDLE_TTL", 1800),
		SessionSweepInterval: durenvms("SESSION_SWEEP_INTERVAL_MS", 30000),
		MaxSessions:          atoienv("MAX_SESSIONS", 1000),
		MailboxSize:          atoienv("MAILBOX_SIZE", 16),
		WSWriteTimeout:       durenvms("WS_WRITE_TIMEOUT_MS", 5000),
		WSAllowedOrigins:     listenv("WS_ALLOWED_ORIGINS"),
	}
}
