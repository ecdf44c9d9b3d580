package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/JonMunkholm/Inventory/internal/core"
	"github.com/JonMunkholm/Inventory/internal/logging"
)

// DefaultTTL applies when NewStore is given a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// Store decorates a core.Store with cached GetProduct.
type Store struct {
	core.Store
	backend Backend
	ttl     time.Duration
	prefix  string
}

var _ core.Store = (*Store)(nil)

// NewStore wraps next. Keys are "<prefix>product:<id>".
func NewStore(next core.Store, backend Backend, ttl time.Duration, prefix string) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{Store: next, backend: backend, ttl: ttl, prefix: prefix}
}

func (s *Store) productKey(id int64) string {
	return s.prefix + "product:" + strconv.FormatInt(id, 10)
}

// GetProduct serves from the cache when it can. Cache failures fall back to
// the wrapped store and are only logged. Reads marked with
// core.ContextForWrite always go to the wrapped store and are not cached.
func (s *Store) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	if core.IsWriteContext(ctx) {
		return s.Store.GetProduct(ctx, id)
	}

	key := s.productKey(id)
	logger := logging.FromContext(ctx)

	data, found, err := s.backend.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn("cache read failed", "key", key, "error", err)
	case found:
		var p core.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		logger.Warn("dropping corrupt cache entry", "key", key)
		s.forget(ctx, id)
	}

	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := s.backend.Set(ctx, key, data, s.ttl); err != nil {
			logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return p, nil
}

// UpdateProduct writes through and drops the cached copy.
func (s *Store) UpdateProduct(ctx context.Context, p core.Product) error {
	err := s.Store.UpdateProduct(ctx, p)
	if err == nil || errors.Is(err, core.ErrNotFound) {
		s.forget(ctx, p.ID)
	}
	return err
}

// DeleteProduct deletes and drops the cached copy.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	err := s.Store.DeleteProduct(ctx, id)
	if err == nil || errors.Is(err, core.ErrNotFound) {
		s.forget(ctx, id)
	}
	return err
}

// Close closes the wrapped store and then the backend.
func (s *Store) Close() error {
	return errors.Join(s.Store.Close(), s.backend.Close())
}

func (s *Store) forget(ctx context.Context, id int64) {
	if err := s.backend.Delete(ctx, s.productKey(id)); err != nil {
		logging.FromContext(ctx).Warn("cache invalidation failed", "product_id", id, "error", err)
	}
}
