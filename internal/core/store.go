package core

import "context"

// Store is the persistence contract for products and stock history.
//
// Implementations must return ErrNotFound for missing rows and ErrConflict
// when the case-insensitive name uniqueness constraint is violated. Each call
// is independent; no operation spans a transaction.
type Store interface {
	// ListProducts returns products matching filter, ordered by id.
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)

	// GetProduct returns the product with id, or ErrNotFound.
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// FindProductByName returns a product whose name equals name
	// case-insensitively, skipping excludeID (0 excludes nothing).
	// Returns ErrNotFound when there is none.
	FindProductByName(ctx context.Context, name string, excludeID int64) (*Product, error)

	// InsertProduct stores p (ignoring p.ID) and returns the assigned id.
	InsertProduct(ctx context.Context, p Product) (int64, error)

	// UpdateProduct overwrites every column of the row with p.ID.
	UpdateProduct(ctx context.Context, p Product) error

	// DeleteProduct hard-deletes the row with id, or returns ErrNotFound.
	DeleteProduct(ctx context.Context, id int64) error

	// InsertStockChange appends a history entry and returns its id.
	InsertStockChange(ctx context.Context, c StockChange) (int64, error)

	// ListStockChanges returns history for productID, newest first.
	ListStockChanges(ctx context.Context, productID int64) ([]StockChange, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
