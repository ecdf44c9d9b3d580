package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/JonMunkholm/Inventory/internal/config"
	"github.com/JonMunkholm/Inventory/internal/core"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore implements core.Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*PostgresStore)(nil)

// OpenPostgres connects a pool using cfg, verifies it and applies the schema.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// ensureSchema closes the handle it is given; this one only borrows
	// connections from the pool.
	if err := ensureSchema(stdlib.OpenDBFromPool(pool), EnginePostgres); err != nil {
		pool.Close()
		return nil, err
	}

	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps a pool whose database already has the schema.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListProducts(ctx context.Context, filter core.ProductFilter) ([]core.Product, error) {
	where, args := NewWhereBuilder(postgresDialect).
		Add("category", filter.Category).
		AddContains("name", filter.Search).
		Build()

	rows, err := s.pool.Query(ctx, "SELECT "+productColumns+" FROM products"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, pgErr(err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Product, error) {
		p, err := scanProduct(row)
		if err != nil {
			return core.Product{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, pgErr(err)
	}
	return products, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, pgErr(err)
	}
	return p, nil
}

func (s *PostgresStore) FindProductByName(ctx context.Context, name string, excludeID int64) (*core.Product, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE lower(name) = lower($1) AND id <> $2 LIMIT 1",
		name, excludeID)
	p, err := scanProduct(row)
	if err != nil {
		return nil, pgErr(err)
	}
	return p, nil
}

func (s *PostgresStore) InsertProduct(ctx context.Context, p core.Product) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO products (name, unit, category, brand, stock, status, image)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.Name, p.Unit, p.Category, p.Brand, p.Stock, p.Status, p.Image,
	).Scan(&id)
	if err != nil {
		return 0, pgErr(err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p core.Product) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET name = $1, unit = $2, category = $3, brand = $4, stock = $5, status = $6, image = $7
		 WHERE id = $8`,
		p.Name, p.Unit, p.Category, p.Brand, p.Stock, p.Status, p.Image, p.ID)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertStockChange(ctx context.Context, c core.StockChange) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO inventory_logs (product_id, old_stock, new_stock, changed_by, "timestamp")
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.ProductID, c.OldStock, c.NewStock, c.ChangedBy, c.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, pgErr(err)
	}
	return id, nil
}

func (s *PostgresStore) ListStockChanges(ctx context.Context, productID int64) ([]core.StockChange, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, product_id, old_stock, new_stock, changed_by, "timestamp"
		 FROM inventory_logs WHERE product_id = $1 ORDER BY "timestamp" DESC, id DESC`, productID)
	if err != nil {
		return nil, pgErr(err)
	}

	changes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.StockChange, error) {
		var c core.StockChange
		err := row.Scan(&c.ID, &c.ProductID, &c.OldStock, &c.NewStock, &c.ChangedBy, &c.Timestamp)
		c.Timestamp = c.Timestamp.UTC()
		return c, err
	})
	if err != nil {
		return nil, pgErr(err)
	}
	return changes, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pgErr maps pgx errors onto the core taxonomy.
func pgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", core.ErrConflict, pgError.ConstraintName)
	}
	return err
}
