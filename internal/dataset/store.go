// Package dataset provides read-mostly SQLite access for the question
// datasets served by the assistant pipelines. A Store hands out schema
// metadata and executes validated SELECT statements; it never exposes row
// data to anything but the caller.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps a pooled sqlx.DB connection to a dataset database.
type Store struct {
	name string
	db   *sqlx.DB

	schema *schemaCache
}

// Open constructs a Store backed by the SQLite database at the provided path,
// using pool settings from the environment.
func Open(name, path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return OpenWithConfig(name, cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(name string, cfg Config) (*Store, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("dataset name required")
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("dataset path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", name, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping dataset %s: %w", name, err)
	}

	return &Store{name: name, db: db, schema: &schemaCache{}}, nil
}

// Name returns the dataset identifier used in API routes and prompts.
func (s *Store) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
