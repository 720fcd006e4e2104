package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront-engine/internal/domain"
)

// Memory is an in-process catalog used by the memory backend and tests.
type Memory struct {
	mu       sync.RWMutex
	vendors  map[string]domain.Vendor
	products map[string]domain.Product
	seq      int
	order    map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		vendors:  map[string]domain.Vendor{},
		products: map[string]domain.Product{},
		order:    map[string]int{},
	}
}

func (m *Memory) GetVendor(_ context.Context, id string) (*domain.Vendor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vendors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (m *Memory) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListProductsByVendor(_ context.Context, vendorID string) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Product
	for _, p := range m.products {
		if p.VendorID == vendorID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return m.order[result[i].ID] < m.order[result[j].ID]
	})
	return result, nil
}

func (m *Memory) UpsertVendor(_ context.Context, v domain.Vendor) (*domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.vendors[v.ID]; ok {
		v.CreatedAt = existing.CreatedAt
	} else if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	m.vendors[v.ID] = v
	return &v, nil
}

func (m *Memory) UpsertProduct(_ context.Context, p domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.products[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		m.seq++
		m.order[p.ID] = m.seq
	}
	m.products[p.ID] = p
	return &p, nil
}
