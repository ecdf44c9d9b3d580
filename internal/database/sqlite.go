package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/Inventory/internal/core"
)

// sqliteTimeLayout is fixed-width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements core.Store on a single-connection SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ core.Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at dsn, applies the
// schema and returns a store. dsn is a file path, a file: URI or ":memory:".
func OpenSQLite(ctx context.Context, dsn string, busyTimeout time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := fmt.Sprintf("PRAGMA busy_timeout = %d; PRAGMA journal_mode = WAL;", busyTimeout.Milliseconds())
	if _, err := db.ExecContext(ctx, pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := ensureSchema(db, EngineSQLite); err != nil {
		db.Close()
		return nil, err
	}

	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an open database that already has the schema.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) ListProducts(ctx context.Context, filter core.ProductFilter) ([]core.Product, error) {
	where, args := NewWhereBuilder(sqliteDialect).
		Add("category", filter.Category).
		AddContains("name", filter.Search).
		Build()

	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, sqliteErr(err)
	}
	defer rows.Close()

	products := []core.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, sqliteErr(err)
		}
		products = append(products, *p)
	}
	return products, sqliteErr(rows.Err())
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, sqliteErr(err)
	}
	return p, nil
}

func (s *SQLiteStore) FindProductByName(ctx context.Context, name string, excludeID int64) (*core.Product, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE "+sqliteLowerFunc+"(name) = "+sqliteLowerFunc+"(?) AND id <> ? LIMIT 1",
		name, excludeID)
	p, err := scanProduct(row)
	if err != nil {
		return nil, sqliteErr(err)
	}
	return p, nil
}

func (s *SQLiteStore) InsertProduct(ctx context.Context, p core.Product) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, unit, category, brand, stock, status, image) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Unit, p.Category, p.Brand, p.Stock, p.Status, p.Image)
	if err != nil {
		return 0, sqliteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, sqliteErr(err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateProduct(ctx context.Context, p core.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, unit = ?, category = ?, brand = ?, stock = ?, status = ?, image = ? WHERE id = ?`,
		p.Name, p.Unit, p.Category, p.Brand, p.Stock, p.Status, p.Image, p.ID)
	if err != nil {
		return sqliteErr(err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return sqliteErr(err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) InsertStockChange(ctx context.Context, c core.StockChange) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO inventory_logs (product_id, old_stock, new_stock, changed_by, timestamp) VALUES (?, ?, ?, ?, ?)`,
		c.ProductID, c.OldStock, c.NewStock, c.ChangedBy, c.Timestamp.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return 0, sqliteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, sqliteErr(err)
	}
	return id, nil
}

func (s *SQLiteStore) ListStockChanges(ctx context.Context, productID int64) ([]core.StockChange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, old_stock, new_stock, changed_by, timestamp
		 FROM inventory_logs WHERE product_id = ? ORDER BY timestamp DESC, id DESC`, productID)
	if err != nil {
		return nil, sqliteErr(err)
	}
	defer rows.Close()

	changes := []core.StockChange{}
	for rows.Next() {
		var c core.StockChange
		var ts string
		if err := rows.Scan(&c.ID, &c.ProductID, &c.OldStock, &c.NewStock, &c.ChangedBy, &ts); err != nil {
			return nil, sqliteErr(err)
		}
		if c.Timestamp, err = parseSQLiteTime(ts); err != nil {
			return nil, fmt.Errorf("history %d: %w", c.ID, err)
		}
		changes = append(changes, c)
	}
	return changes, sqliteErr(rows.Err())
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return sqliteErr(err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// parseSQLiteTime accepts the layout written by this package and RFC 3339
// values written by older versions of the service.
func parseSQLiteTime(s string) (time.Time, error) {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// sqliteErr maps driver errors onto the core taxonomy.
func sqliteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("%w: %v", core.ErrConflict, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", core.ErrConflict, err)
	}
	return err
}
