package dataset

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the SQLite connection pool for a dataset store.
type Config struct {
	Path string

	MaxOpenConns int
	MaxIdleConns int

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	BusyTimeout     time.Duration
}

// Merge overlays non-zero fields from the override onto the base config.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Path) != "" {
		result.Path = strings.TrimSpace(override.Path)
	}
	if override.MaxOpenConns > 0 {
		result.MaxOpenConns = override.MaxOpenConns
	}
	if override.MaxIdleConns > 0 {
		result.MaxIdleConns = override.MaxIdleConns
	}
	if override.ConnMaxLifetime > 0 {
		result.ConnMaxLifetime = override.ConnMaxLifetime
	}
	if override.ConnMaxIdleTime > 0 {
		result.ConnMaxIdleTime = override.ConnMaxIdleTime
	}
	if override.BusyTimeout > 0 {
		result.BusyTimeout = override.BusyTimeout
	}
	return result
}

// LoadConfig builds a Config from DATALENS_SQLITE_* environment variables and
// fills in defaults for anything unset.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if v := strings.TrimSpace(os.Getenv("DATALENS_SQLITE_MAX_OPEN_CONNS")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse DATALENS_SQLITE_MAX_OPEN_CONNS: %w", err)
		}
		cfg.MaxOpenConns = parsed
	}
	if v := strings.TrimSpace(os.Getenv("DATALENS_SQLITE_MAX_IDLE_CONNS")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse DATALENS_SQLITE_MAX_IDLE_CONNS: %w", err)
		}
		cfg.MaxIdleConns = parsed
	}
	for _, entry := range []struct {
		env  string
		dest *time.Duration
	}{
		{"DATALENS_SQLITE_CONN_MAX_LIFETIME", &cfg.ConnMaxLifetime},
		{"DATALENS_SQLITE_CONN_MAX_IDLE_TIME", &cfg.ConnMaxIdleTime},
		{"DATALENS_SQLITE_BUSY_TIMEOUT", &cfg.BusyTimeout},
	} {
		if v := strings.TrimSpace(os.Getenv(entry.env)); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", entry.env, err)
			}
			*entry.dest = parsed
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 8
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 15 * time.Minute
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
}
