package store

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationsTable holds the schema version. It is named for this service so
// a shared Postgres database can host other migrators too.
const MigrationsTable = "issuer_schema_migrations"

// Migrate applies every pending up migration in files to driver. Drivers
// call it from ApplyMigrations with their embedded migration set.
func Migrate(files fs.FS, dbName string, driver database.Driver) error {
	src, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("%s: load migrations: %w", dbName, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("%s: prepare migrations: %w", dbName, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: migrate up: %w", dbName, err)
	}
	return nil
}
