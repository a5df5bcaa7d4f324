package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Migrate applies the embedded migrations for the store's dialect.
// direction must be "up" or "down"; being already at the target version is not an error.
func (s *Store) Migrate(direction string) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}

	src, err := iofs.New(migrationFS, "migrations/"+s.driver)
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	// The drivers reuse our pool; m.Close would close it, so it is left open.
	var (
		drv  database.Driver
		name string
	)
	switch s.driver {
	case DriverSQLite:
		drv, err = sqlite3.WithInstance(s.db, &sqlite3.Config{})
		name = "sqlite3"
	case DriverPostgres:
		drv, err = postgres.WithInstance(s.db, &postgres.Config{})
		name = "postgres"
	default:
		return fmt.Errorf("unsupported database driver %q", s.driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, name, drv)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if direction == "up" {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate %s: %w", direction, err)
	}
	return nil
}
