package history

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// source driver
)

// MigrateUp applies all pending migrations to the history database.
// migrationsPath uses golang-migrate's source URL form, e.g.
// "file://history/migrations". migrate.ErrNoChange is not an error.
func MigrateUp(db *sql.DB, migrationsPath string) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("history: creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "main", driver)
	if err != nil {
		return fmt.Errorf("history: creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("history: applying migrations: %w", err)
	}

	return nil
}

// schemaDDL is the bootstrap schema used when no migrations directory
// is configured (tests, ad-hoc runs). Kept in sync with
// migrations/000001_create_generations.up.sql.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS generations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    model TEXT NOT NULL,
    device_index INTEGER NOT NULL,
    device_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    steps INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    status TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
CREATE INDEX IF NOT EXISTS idx_generations_model ON generations(model);
`

// Bootstrap creates the schema directly, bypassing golang-migrate.
func Bootstrap(db *sql.DB) error {
	if _, err := db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("history: bootstrapping schema: %w", err)
	}
	return nil
}
