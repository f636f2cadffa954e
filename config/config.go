// Package config loads engine settings from the environment.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds the engine settings shared by sweep drivers.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"QSPACE_LOG_LEVEL" envDefault:"info"`
	// LogPretty switches from JSON to human readable console output.
	LogPretty bool `env:"QSPACE_LOG_PRETTY" envDefault:"false"`
	// Workers is the sweep pool size. Zero picks one worker per physical
	// core.
	Workers int `env:"QSPACE_WORKERS" envDefault:"0"`
	// DenseLimit is the composite dimension above which partial spectra use
	// Arnoldi iteration instead of the dense solver.
	DenseLimit int `env:"QSPACE_DENSE_LIMIT" envDefault:"512"`
	// ArchivePath, when set, archives sweep records to this sqlite file.
	ArchivePath string `env:"QSPACE_ARCHIVE"`
}

// Load reads .env when present, then the QSPACE_* environment variables.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("log level %q", c.LogLevel)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers %d negative", c.Workers)
	}
	if c.DenseLimit < 1 {
		return errors.Errorf("dense limit %d", c.DenseLimit)
	}
	return nil
}
