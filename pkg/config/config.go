// Package config loads server settings from the environment, with a
// .env file honored in development.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full server configuration. Flags may override Port and
// Debug after loading.
type Config struct {
	Port  string `env:"PORT" envDefault:"8080"`
	Debug bool   `env:"DEBUG" envDefault:"false"`

	// DataPath is the SQLite database file. Empty keeps every record in
	// memory, which is what the test harness and throwaway servers want.
	DataPath string `env:"DATA_PATH"`

	// APIKeys is a comma-separated list; empty disables authentication.
	APIKeys      []string `env:"API_KEYS"`
	FrontendPath string   `env:"FRONTEND_PATH"`

	// GnubgServiceURL points at an analysis sidecar for computer move
	// selection. Empty falls back to the built-in heuristic.
	GnubgServiceURL string        `env:"GNUBG_SERVICE_URL"`
	GnubgTimeout    time.Duration `env:"GNUBG_TIMEOUT" envDefault:"5s"`
	GnubgPlies      int           `env:"GNUBG_PLIES" envDefault:"1"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	MaxInactivity time.Duration `env:"MAX_INACTIVITY" envDefault:"2h"`
	GraceWindow   time.Duration `env:"GRACE_WINDOW" envDefault:"5m"`

	CorrespondenceAllowance time.Duration `env:"CORRESPONDENCE_ALLOWANCE" envDefault:"24h"`
}

// Load reads the environment into a Config. A missing .env file is not an
// error; deployments configure through real environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
