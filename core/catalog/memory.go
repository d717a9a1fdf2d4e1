package catalog

import (
	"context"
	"sort"
	"sync"
)

// Memory is the in-memory catalog adapter. It backs the service tests and
// small single-process deployments.
type Memory struct {
	mu       sync.RWMutex
	products map[int64]Product
}

func NewMemory() *Memory {
	return &Memory{products: make(map[int64]Product)}
}

func (m *Memory) Add(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *Memory) Fetch(ctx context.Context, productID int64) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[productID]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) List(ctx context.Context, offset, limit int) ([]Product, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return []Product{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]Product, end-offset)
	copy(page, all[offset:end])
	return page, len(all), nil
}
