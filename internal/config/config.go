// Package config loads roadsafe settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-driven setting. CLI flags override the
// fields they name after Load returns.
type Config struct {
	// DBPath is the SQLite file for local records and the server's board.
	DBPath string `env:"ROADSAFE_DB" envDefault:"roadsafe.db"`

	// RemoteURL is the leaderboard service root. Empty runs offline.
	RemoteURL     string        `env:"ROADSAFE_REMOTE_URL"`
	RemoteToken   string        `env:"ROADSAFE_REMOTE_TOKEN"`
	RemoteTimeout time.Duration `env:"ROADSAFE_REMOTE_TIMEOUT" envDefault:"10s"`
	RemoteRetries int           `env:"ROADSAFE_REMOTE_RETRIES" envDefault:"2"`

	ListenAddr    string        `env:"ROADSAFE_LISTEN_ADDR" envDefault:":8080"`
	PurgeInterval time.Duration `env:"ROADSAFE_PURGE_INTERVAL" envDefault:"1h"`

	LeaderboardLimit int           `env:"ROADSAFE_LEADERBOARD_LIMIT" envDefault:"50"`
	CacheCap         int           `env:"ROADSAFE_CACHE_CAP" envDefault:"50"`
	HistoryWindow    time.Duration `env:"ROADSAFE_HISTORY_WINDOW" envDefault:"1h"`
	EntryTTL         time.Duration `env:"ROADSAFE_ENTRY_TTL" envDefault:"168h"`

	// CatalogPath is an optional CUE file replacing the embedded catalog.
	CatalogPath string `env:"ROADSAFE_CATALOG"`
}

// Load parses the environment into a Config and validates it.
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

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch {
	case c.DBPath == "":
		return fmt.Errorf("config: ROADSAFE_DB must not be empty")
	case c.RemoteTimeout <= 0:
		return fmt.Errorf("config: ROADSAFE_REMOTE_TIMEOUT must be positive")
	case c.LeaderboardLimit < 1:
		return fmt.Errorf("config: ROADSAFE_LEADERBOARD_LIMIT must be at least 1")
	case c.CacheCap < 1:
		return fmt.Errorf("config: ROADSAFE_CACHE_CAP must be at least 1")
	case c.HistoryWindow < 0:
		return fmt.Errorf("config: ROADSAFE_HISTORY_WINDOW must not be negative")
	case c.EntryTTL <= 0:
		return fmt.Errorf("config: ROADSAFE_ENTRY_TTL must be positive")
	case c.PurgeInterval <= 0:
		return fmt.Errorf("config: ROADSAFE_PURGE_INTERVAL must be positive")
	}
	return nil
}

// Offline reports whether no leaderboard service is configured.
func (c Config) Offline() bool {
	return c.RemoteURL == ""
}
