package sqlite

import (
	"fmt"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"

	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/sqlite/migrations"
)

// ApplyMigrations brings the schema up to date from the migrations embedded
// in the binary. It runs on the store's single connection, so it must not
// be called while a transaction is open.
func (s *Store) ApplyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{MigrationsTable: store.MigrationsTable})
	if err != nil {
		return fmt.Errorf("sqlite: migration driver: %w", err)
	}
	return store.Migrate(migrations.Migrations, "sqlite", driver)
}
