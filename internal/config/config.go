package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port" env:"PORT"`
		ShutdownTimeout string `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"log"`
	Storage struct {
		Driver string `yaml:"driver" env:"STORAGE_DRIVER"`
	} `yaml:"storage"`
	Postgres struct {
		URL string `yaml:"url" env:"DATABASE_URL"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path" env:"SQLITE_PATH"`
	} `yaml:"sqlite"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Game struct {
		PointTiers          []int `yaml:"point_tiers" env:"GAME_POINT_TIERS" envSeparator:","`
		MaxQuestionsPerTier int   `yaml:"max_questions_per_tier" env:"GAME_MAX_QUESTIONS_PER_TIER"`
		IncorrectPenalty    bool  `yaml:"incorrect_penalty" env:"GAME_INCORRECT_PENALTY"`
	} `yaml:"game"`
}

// Load reads YAML config from path, when the file exists, then applies
// environment overrides and defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "trivia.db"
	}
}

// Validate checks the storage selection and game settings.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres url not configured")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	for _, p := range c.Game.PointTiers {
		if p <= 0 {
			return fmt.Errorf("point tier %d must be positive", p)
		}
	}
	if c.Game.MaxQuestionsPerTier < 0 {
		return fmt.Errorf("max questions per tier must not be negative")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
