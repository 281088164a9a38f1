// Package config loads server settings from a TOML file. Only the process
// around the simulation is configurable; the disease model is fixed in
// package params.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Simulation SimulationConfig `toml:"simulation"`
	History    HistoryConfig    `toml:"history"`
	Logging    LoggingConfig    `toml:"logging"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"` // Added to the localhost dev origins
	MaxStreams  int      `toml:"max_streams"`  // Concurrent websocket viewers
}

type SimulationConfig struct {
	Seed     int64 `toml:"seed"`     // 0 = seed from crypto/rand
	Autoplay bool  `toml:"autoplay"` // Advance ticks without HTTP polling
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // "text" or "json"
}

type RateLimitConfig struct {
	RestartsPerMinute int `toml:"restarts_per_minute"`
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults. A file that cannot be read is an error, including a missing one;
// callers decide whether a missing file is acceptable.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			MaxStreams: 8,
		},
		Simulation: SimulationConfig{
			Seed:     0,
			Autoplay: false,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "data/outbreak.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			RestartsPerMinute: 30,
		},
	}
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is empty")
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path is empty while history is enabled")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q: want text or json", c.Logging.Format)
	}
	if c.RateLimit.RestartsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.restarts_per_minute %d: must be positive", c.RateLimit.RestartsPerMinute)
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level %q: %w", l.Level, err)
	}
	return level, nil
}

// NewLogger builds the process logger from the logging section.
func (l LoggingConfig) NewLogger() *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
