package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds digen's environment settings. Flags override them.
type Config struct {
	AllowDynamic bool
	LogLevel     slog.Level
	LogFormat    string // text | json
}

// LoadConfig reads .env (if present) and populates a Config from environment
// variables.
func LoadConfig(envFiles ...string) (Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// .env is optional
	_ = godotenv.Load(files...)

	return configFromEnv(os.Getenv)
}

func configFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{LogLevel: slog.LevelWarn, LogFormat: "text"}

	if v := strings.TrimSpace(getenv("DIGEN_ALLOW_DYNAMIC")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("DIGEN_ALLOW_DYNAMIC: %w", err)
		}
		cfg.AllowDynamic = b
	}
	if v := strings.TrimSpace(getenv("DIGEN_LOG_LEVEL")); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("DIGEN_LOG_LEVEL: %w", err)
		}
	}
	if v := strings.ToLower(strings.TrimSpace(getenv("DIGEN_LOG_FORMAT"))); v != "" {
		if v != "text" && v != "json" {
			return Config{}, fmt.Errorf("DIGEN_LOG_FORMAT: unknown format %q", v)
		}
		cfg.LogFormat = v
	}
	return cfg, nil
}

// newLogger builds the stderr logger for the configured level and format.
func (c Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
