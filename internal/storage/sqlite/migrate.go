package sqlite

import (
	"errors"

	"github.com/aanand-mishra/clients-api/internal/storage/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations applies any pending schema migrations using the SQL files
// embedded in the binary. Running it on an up-to-date database is a no-op.
//
// The migrate instance is never closed: that would close s.Db as well.
func (s *SQLite) ApplyMigrations() error {
	if s.tx {
		return nil
	}

	driver, err := migratesqlite.WithInstance(s.Db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
