// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service-level settings. OTel has its own env-driven
// configuration in the otel adapter.
type Config struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	DatabasePath  string        `env:"DATABASE_PATH" envDefault:"spagate.db"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env: %w", err)
	}
	return cfg, nil
}
