package download

import (
	"context"
	"sync"
	"time"
)

type Memory struct {
	mu      sync.RWMutex
	nextID  int64
	byToken map[string]*Grant
}

func NewMemory() *Memory {
	return &Memory{nextID: 1, byToken: make(map[string]*Grant)}
}

func (m *Memory) Create(ctx context.Context, g Grant) (Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g.ID = m.nextID
	m.nextID++

	stored := g
	m.byToken[g.Token] = &stored
	return g, nil
}

func (m *Memory) FetchByToken(ctx context.Context, token string) (Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.byToken[token]
	if !ok {
		return Grant{}, ErrNotFound
	}
	return *g, nil
}

func (m *Memory) FetchActiveByOwner(ctx context.Context, userID, productID int64, now time.Time) (Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *Grant
	for _, g := range m.byToken {
		if g.UserID != userID || g.ProductID != productID || !now.Before(g.ExpiresAt) {
			continue
		}
		if best == nil || g.CreatedAt.After(best.CreatedAt) ||
			(g.CreatedAt.Equal(best.CreatedAt) && g.ID > best.ID) {
			best = g
		}
	}

	if best == nil {
		return Grant{}, ErrNotFound
	}
	return *best, nil
}

func (m *Memory) IncrementCount(ctx context.Context, token string) (Grant, error) {
	// Increment under the write lock so concurrent redeems never lose an
	// update.
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.byToken[token]
	if !ok {
		return Grant{}, ErrNotFound
	}

	g.DownloadCount++
	return *g, nil
}
