package postgres

import (
	"fmt"

	mpostgres "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/postgres/migrations"
)

// ApplyMigrations brings the schema up to date from the embedded migrations.
func (s *Store) ApplyMigrations() error {
	driver, err := mpostgres.WithInstance(s.db, &mpostgres.Config{MigrationsTable: store.MigrationsTable})
	if err != nil {
		return fmt.Errorf("postgres: migration driver: %w", err)
	}
	return store.Migrate(migrations.Migrations, "postgres", driver)
}
