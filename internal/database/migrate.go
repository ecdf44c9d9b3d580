package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// ensureSchema applies every pending migration for engine to db.
// It is idempotent; an up-to-date schema is not an error.
func ensureSchema(db *sql.DB, engine Engine) error {
	src, err := iofs.New(migrationFS, "migrations/"+string(engine))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer src.Close()

	var driver database.Driver
	switch engine {
	case EnginePostgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	case EngineSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return fmt.Errorf("no migrations for engine %q", engine)
	}
	if err != nil {
		return fmt.Errorf("create %s migration driver: %w", engine, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(engine), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Closing m closes db. The pgx driver also pins a connection until then,
	// so PostgreSQL callers pass a throwaway handle over the pool. The SQLite
	// handle is the store's own and must stay open.
	if engine == EnginePostgres {
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	slog.Info("schema ready", "engine", engine, "version", version, "dirty", dirty)
	return nil
}
