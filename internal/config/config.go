// Package config loads the hostguard server configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/hostguard/internal/engine"
	"github.com/mcoot/hostguard/internal/services/kick"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config is the server configuration
type Config struct {
	Host     string     `env:"HOSTGUARD_HOST" envDefault:"127.0.0.1"`
	Port     int        `env:"HOSTGUARD_PORT" envDefault:"8080"`
	LogLevel slog.Level `env:"HOSTGUARD_LOG_LEVEL" envDefault:"info"`

	Storage     string `env:"HOSTGUARD_STORAGE" envDefault:"memory"`
	RedisURL    string `env:"HOSTGUARD_REDIS_URL"`
	RedisPrefix string `env:"HOSTGUARD_REDIS_PREFIX" envDefault:"hostguard"`
	SQLitePath  string `env:"HOSTGUARD_SQLITE_PATH" envDefault:"hostguard.db"`

	// OperatorTokenHash is a bcrypt hash of the API bearer token. Empty
	// disables authentication.
	OperatorTokenHash string `env:"HOSTGUARD_OPERATOR_TOKEN_HASH"`
	DiscordWebhookURL string `env:"HOSTGUARD_DISCORD_WEBHOOK_URL"`
	OTelEndpoint      string `env:"HOSTGUARD_OTEL_ENDPOINT"`

	MaxKickAttempts  int           `env:"HOSTGUARD_MAX_KICK_ATTEMPTS" envDefault:"3"`
	KickCooldown     time.Duration `env:"HOSTGUARD_KICK_COOLDOWN" envDefault:"3s"`
	SoftlockInterval time.Duration `env:"HOSTGUARD_SOFTLOCK_INTERVAL" envDefault:"500ms"`
	RemovalGrace     time.Duration `env:"HOSTGUARD_REMOVAL_GRACE" envDefault:"10s"`
	SaveInterval     time.Duration `env:"HOSTGUARD_SAVE_INTERVAL" envDefault:"5s"`
	PollInterval     time.Duration `env:"HOSTGUARD_POLL_INTERVAL" envDefault:"1s"`
	LoadChunk        int           `env:"HOSTGUARD_LOAD_CHUNK" envDefault:"200"`

	SimLocalID     string `env:"HOSTGUARD_SIM_LOCAL_ID" envDefault:"local"`
	SimLocalName   string `env:"HOSTGUARD_SIM_LOCAL_NAME" envDefault:"Host"`
	SimDropPercent int    `env:"HOSTGUARD_SIM_DROP_PERCENT" envDefault:"0"`
}

// ParseEnv loads configuration from environment variables into target
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the server configuration
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser can't
func (c Config) Validate() error {
	var errs []error

	switch c.Storage {
	case StorageMemory, StorageSQLite:
	case StorageRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("HOSTGUARD_REDIS_URL is required when HOSTGUARD_STORAGE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid HOSTGUARD_STORAGE %q: must be memory, redis or sqlite", c.Storage))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid HOSTGUARD_PORT %d", c.Port))
	}
	if c.MaxKickAttempts < 1 {
		errs = append(errs, errors.New("HOSTGUARD_MAX_KICK_ATTEMPTS must be at least 1"))
	}
	for name, d := range map[string]time.Duration{
		"HOSTGUARD_SOFTLOCK_INTERVAL": c.SoftlockInterval,
		"HOSTGUARD_SAVE_INTERVAL":     c.SaveInterval,
		"HOSTGUARD_POLL_INTERVAL":     c.PollInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.LoadChunk < 1 {
		errs = append(errs, errors.New("HOSTGUARD_LOAD_CHUNK must be at least 1"))
	}
	if c.SimLocalID == "" {
		errs = append(errs, errors.New("HOSTGUARD_SIM_LOCAL_ID must not be empty"))
	}
	if c.SimDropPercent < 0 || c.SimDropPercent > 100 {
		errs = append(errs, fmt.Errorf("HOSTGUARD_SIM_DROP_PERCENT %d out of range 0-100", c.SimDropPercent))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ToEngineConfig returns the engine timings
func (c Config) ToEngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Kick = kick.Config{
		MaxAttempts:  c.MaxKickAttempts,
		Cooldown:     c.KickCooldown,
		RemovalGrace: c.RemovalGrace,
	}
	cfg.SoftlockInterval = c.SoftlockInterval
	cfg.PollInterval = c.PollInterval
	cfg.SaveInterval = c.SaveInterval
	cfg.LoadChunkSize = c.LoadChunk
	return cfg
}
