package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"

	"github.com/codage11/pricer3d/internal/geometry"
	"github.com/codage11/pricer3d/internal/pricing"
)

// Store backends selectable through QUOTE_STORE.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds application configuration sourced from environment
// variables. Estimator and pricing constants are nested so every business
// knob is overridable without a rebuild.
type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	AppEnv     string `env:"APP_ENV" envDefault:"dev"`
	DBPath     string `env:"DB_PATH" envDefault:"./dev.db"`
	QuoteStore string `env:"QUOTE_STORE" envDefault:"sqlite"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// MaxUploadBytes caps accepted mesh uploads. Default 50 MiB.
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"`

	Estimator geometry.Config
	Pricing   pricing.Config
}

// Load reads environment variables and returns a populated Config.
func Load() (Config, error) {
	// Best-effort: pick up local dev variables first. Production should
	// use real env injection.
	_ = loadDotEnv(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config from environment: %w", err)
	}

	switch cfg.QuoteStore {
	case StoreSQLite, StoreRedis, StoreMemory:
	default:
		return Config{}, fmt.Errorf("QUOTE_STORE must be one of sqlite, redis, memory; got %q", cfg.QuoteStore)
	}

	return cfg, nil
}

// IsDev reports whether the app runs in development mode. Migrations are
// applied automatically only in dev.
func (c Config) IsDev() bool {
	return c.AppEnv != "prod"
}
