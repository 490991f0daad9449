// Package config loads the server configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/battleship-server/internal/api"
	"github.com/mcoot/battleship-server/internal/events"
	"github.com/mcoot/battleship-server/internal/server"
	"github.com/mcoot/battleship-server/internal/services/auth"
	"github.com/mcoot/battleship-server/internal/services/challenge"
	"github.com/mcoot/battleship-server/internal/services/matchmaking"
	"github.com/mcoot/battleship-server/internal/storage/postgres"
	redisstorage "github.com/mcoot/battleship-server/internal/storage/redis"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Event publishers
const (
	EventsNone = "none"
	EventsNATS = "nats"
)

// Config is the whole server configuration
type Config struct {
	Server      server.Config      `yaml:"server"`
	Admin       api.ServerConfig   `yaml:"admin"`
	Storage     StorageConfig      `yaml:"storage"`
	Events      EventsConfig       `yaml:"events"`
	Auth        auth.Config        `yaml:"auth"`
	Challenge   challenge.Config   `yaml:"challenge"`
	Matchmaking matchmaking.Config `yaml:"matchmaking"`
	Log         LogConfig          `yaml:"log"`

	// StatsInterval is how often a stats line is logged. Zero disables it.
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// StorageConfig selects and configures the user/match store
type StorageConfig struct {
	Type     string              `yaml:"type"`
	Redis    redisstorage.Config `yaml:"redis"`
	Postgres postgres.Config     `yaml:"postgres"`
}

// EventsConfig selects where match events go
type EventsConfig struct {
	Type string            `yaml:"type"`
	NATS events.NATSConfig `yaml:"nats"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Server:      server.DefaultConfig(),
		Admin:       api.DefaultServerConfig(),
		Storage:     StorageConfig{Type: StorageMemory, Redis: redisstorage.DefaultConfig(), Postgres: postgres.DefaultConfig()},
		Events:      EventsConfig{Type: EventsNone, NATS: events.DefaultNATSConfig()},
		Auth:        auth.DefaultConfig(),
		Challenge:   challenge.DefaultConfig(),
		Matchmaking: matchmaking.DefaultConfig(),
		Log:         LogConfig{Level: "info", Format: "json"},

		StatsInterval: 30 * time.Second,
	}
}

// Load reads path over the defaults (path may be empty), then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("BS_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BS_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("BS_ADMIN_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BS_ADMIN_PORT: %w", err)
		}
		c.Admin.Port = port
	}
	if v, ok := lookup("BS_ADMIN_TOKEN"); ok {
		c.Admin.Token = v
	}
	if v, ok := lookup("STORAGE_TYPE"); ok {
		c.Storage.Type = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.Storage.Redis.URL = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.Storage.Postgres.DSN = v
	}
	if v, ok := lookup("NATS_URL"); ok {
		c.Events.Type = EventsNATS
		c.Events.NATS.URL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Type {
	case StorageMemory, StorageRedis, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.type %q: must be memory, redis or postgres", c.Storage.Type))
	}
	switch c.Events.Type {
	case EventsNone, EventsNATS:
	default:
		errs = append(errs, fmt.Errorf("events.type %q: must be none or nats", c.Events.Type))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		errs = append(errs, fmt.Errorf("admin.port %d out of range", c.Admin.Port))
	}
	if c.Matchmaking.InitialRange < 0 || c.Matchmaking.RangeStep < 0 {
		errs = append(errs, errors.New("matchmaking ranges must not be negative"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel converts a level name to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds the process logger described by c
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
