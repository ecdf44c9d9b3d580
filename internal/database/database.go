// Package database provides the PostgreSQL and SQLite implementations of
// core.Store and the embedded schema migrations they share.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JonMunkholm/Inventory/internal/config"
	"github.com/JonMunkholm/Inventory/internal/core"
)

// Engine names a supported database engine.
type Engine string

const (
	EnginePostgres Engine = "postgres"
	EngineSQLite   Engine = "sqlite"
)

const productColumns = `id, name, unit, category, brand, stock, status, image`

// ParseURL picks the engine for a DATABASE_URL and returns the DSN to hand
// to its driver.
//
//	postgres://... postgresql://...   -> PostgreSQL, URL unchanged
//	sqlite:path  sqlite://path        -> SQLite, path
//	file:path?opts                    -> SQLite, URI unchanged
//	anything else                     -> SQLite, treated as a file path
func ParseURL(raw string) (Engine, string, error) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)

	switch {
	case raw == "":
		return "", "", fmt.Errorf("empty database URL")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return EnginePostgres, raw, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return sqliteDSN(raw[len("sqlite://"):])
	case strings.HasPrefix(lower, "sqlite:"):
		return sqliteDSN(raw[len("sqlite:"):])
	case strings.HasPrefix(lower, "file:"):
		return EngineSQLite, raw, nil
	case strings.Contains(raw, "://"):
		return "", "", fmt.Errorf("unsupported database URL scheme in %q", config.MaskURL(raw))
	default:
		return sqliteDSN(raw)
	}
}

func sqliteDSN(path string) (Engine, string, error) {
	if path == "" {
		return "", "", fmt.Errorf("sqlite URL has no path")
	}
	return EngineSQLite, path, nil
}

// Open connects to the database named by cfg.URL and ensures its schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Store, Engine, error) {
	engine, dsn, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, "", err
	}

	switch engine {
	case EnginePostgres:
		store, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, engine, err
		}
		return store, engine, nil
	default:
		store, err := OpenSQLite(ctx, dsn, cfg.BusyTimeout)
		if err != nil {
			return nil, engine, err
		}
		return store, engine, nil
	}
}

// rowScanner is satisfied by database/sql and pgx rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (*core.Product, error) {
	var p core.Product
	var image sql.NullString
	if err := r.Scan(&p.ID, &p.Name, &p.Unit, &p.Category, &p.Brand, &p.Stock, &p.Status, &image); err != nil {
		return nil, err
	}
	if image.Valid {
		p.Image = &image.String
	}
	return &p, nil
}
