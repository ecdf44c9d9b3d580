package core

import (
	"context"
	"fmt"
	"time"
)

// ImportTimeout bounds a single import run, including the wait for a slot.
var ImportTimeout = 5 * time.Minute

// Recorder receives domain events for metrics. The zero Service uses a no-op.
type Recorder interface {
	ImportRow(outcome Outcome)
	ImportFinished(d time.Duration, err error)
	StockChanged()
}

type noopRecorder struct{}

func (noopRecorder) ImportRow(Outcome)                    {}
func (noopRecorder) ImportFinished(time.Duration, error) {}
func (noopRecorder) StockChanged()                        {}

// Service provides the product operations used by the HTTP layer.
type Service struct {
	store   Store
	limiter *ImportLimiter
	metrics Recorder
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithImportLimiter bounds concurrent imports.
func WithImportLimiter(l *ImportLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithRecorder sends import and audit events to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		limiter: NewImportLimiter(DefaultMaxConcurrentImports, DefaultImportWait),
		metrics: noopRecorder{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limiter returns the import limiter so shutdown can wait for it to drain.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListProducts returns products filtered by exact category and a
// case-insensitive name substring. Empty filter fields are ignored.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	products, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, storageErr("list products", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// SearchProducts returns products whose name contains term, ignoring case.
func (s *Service) SearchProducts(ctx context.Context, term string) ([]Product, error) {
	return s.ListProducts(ctx, ProductFilter{Search: term})
}

// GetProduct returns one product or ErrNotFound.
func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, storageErr("get product", err)
	}
	return p, nil
}

// CreateProduct validates f, rejects a case-insensitive name collision with
// ErrConflict, and returns the stored product.
func (s *Service) CreateProduct(ctx context.Context, f ProductFields) (*Product, error) {
	p, err := buildNewProduct(f)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, p.Name, 0); err != nil {
		return nil, err
	}

	id, err := s.store.InsertProduct(ctx, p)
	if err != nil {
		return nil, storageErr("insert product", err)
	}
	p.ID = id
	return &p, nil
}

// UpdateProduct applies the supplied fields of u to product id.
//
// When u carries a stock value different from the stored one, a StockChange
// is recorded first. A failure there aborts the update and leaves the
// product untouched. The read, audit and write are separate store calls.
func (s *Service) UpdateProduct(ctx context.Context, id int64, u ProductUpdate) (*Product, error) {
	// The old stock feeds the audit trail, so it must not come from a cache.
	current, err := s.store.GetProduct(ContextForWrite(ctx), id)
	if err != nil {
		return nil, storageErr("get product", err)
	}

	next, err := applyUpdate(*current, u.ProductFields)
	if err != nil {
		return nil, err
	}

	if u.Name != nil {
		if err := s.ensureNameFree(ctx, next.Name, id); err != nil {
			return nil, err
		}
	}

	if stockChanged(*current, u.Stock) {
		actor := resolveActor(ctx, u.ChangedBy)
		if err := s.recordStockChange(ctx, id, current.Stock, next.Stock, actor); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateProduct(ctx, next); err != nil {
		return nil, storageErr("update product", err)
	}
	return &next, nil
}

// DeleteProduct removes product id. Its stock history is kept.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return storageErr("delete product", err)
	}
	return nil
}

// ensureNameFree returns ErrConflict if another product (other than
// excludeID) already uses name, compared case-insensitively.
func (s *Service) ensureNameFree(ctx context.Context, name string, excludeID int64) error {
	existing, err := s.store.FindProductByName(ctx, name, excludeID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %q is used by product %d", ErrConflict, name, existing.ID)
	case isNotFound(err):
		return nil
	default:
		return storageErr("find product by name", err)
	}
}
