// Package history persists generation request metadata to SQLite. Only
// metadata is stored (model, device, parameters, timing, outcome);
// image bytes never touch the database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// ConnectionConfig holds configuration for the SQLite connection.
type ConnectionConfig struct {
	// Path is the database file path.
	Path string
	// BusyTimeout is how long to wait for locks (milliseconds).
	BusyTimeout int
	// MaxOpenConns limits concurrent connections. SQLite handles
	// concurrency best with a single writer.
	MaxOpenConns int
	// MaxIdleConns limits idle connections in the pool.
	MaxIdleConns int
	// ConnMaxLifetime limits connection reuse (0 = no limit).
	ConnMaxLifetime time.Duration
}

// DefaultConnectionConfig returns WAL-friendly defaults.
func DefaultConnectionConfig(path string) ConnectionConfig {
	return ConnectionConfig{
		Path:         path,
		BusyTimeout:  5000,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// NewSQLiteConnection opens the history database with WAL mode enabled.
// Parent directories are created if missing.
func NewSQLiteConnection(config ConnectionConfig) (*sql.DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("history: database path is required")
	}

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("history: failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: failed to ping database: %w", err)
	}

	// Pragmas are per-connection; apply right after opening.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", config.BusyTimeout),
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: applying %q: %w", pragma, err)
		}
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	return db, nil
}
