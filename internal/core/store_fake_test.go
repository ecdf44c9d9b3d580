package core

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memStore is an in-memory Store used by the service tests.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	nextHist int64
	products map[int64]Product
	history  []StockChange

	// Failure injection.
	stockChangeErr error
	insertErr      map[string]error // keyed by lower-cased name
	afterInsert    func(name string)
	updateCalls    int
}

func newMemStore() *memStore {
	return &memStore{products: make(map[int64]Product), insertErr: make(map[string]error)}
}

func (m *memStore) ListProducts(_ context.Context, f ProductFilter) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Product
	for _, p := range m.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memStore) FindProductByName(_ context.Context, name string, excludeID int64) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.products {
		if p.ID != excludeID && strings.EqualFold(p.Name, name) {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) InsertProduct(_ context.Context, p Product) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.insertErr[strings.ToLower(p.Name)]; err != nil {
		return 0, err
	}
	for _, existing := range m.products {
		if strings.EqualFold(existing.Name, p.Name) {
			return 0, ErrConflict
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = p
	if m.afterInsert != nil {
		m.afterInsert(p.Name)
	}
	return p.ID, nil
}

func (m *memStore) UpdateProduct(_ context.Context, p Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) InsertStockChange(_ context.Context, c StockChange) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stockChangeErr != nil {
		return 0, m.stockChangeErr
	}
	m.nextHist++
	c.ID = m.nextHist
	m.history = append(m.history, c)
	return c.ID, nil
}

func (m *memStore) ListStockChanges(_ context.Context, productID int64) ([]StockChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []StockChange
	for _, c := range m.history {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) historyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}
