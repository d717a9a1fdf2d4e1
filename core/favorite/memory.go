package favorite

import (
	"context"
	"sort"
	"sync"
)

type pair struct {
	userID    int64
	productID int64
}

type Memory struct {
	mu     sync.RWMutex
	nextID int64
	byPair map[pair]Favorite
}

func NewMemory() *Memory {
	return &Memory{nextID: 1, byPair: make(map[pair]Favorite)}
}

func (m *Memory) Add(ctx context.Context, fav Favorite) (Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := pair{userID: fav.UserID, productID: fav.ProductID}
	if _, ok := m.byPair[k]; ok {
		return Favorite{}, ErrExists
	}

	fav.ID = m.nextID
	m.nextID++
	m.byPair[k] = fav
	return fav, nil
}

func (m *Memory) Remove(ctx context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := pair{userID: userID, productID: productID}
	if _, ok := m.byPair[k]; !ok {
		return ErrNotFound
	}
	delete(m.byPair, k)
	return nil
}

func (m *Memory) FetchByUser(ctx context.Context, userID int64) ([]Favorite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	favs := []Favorite{}
	for _, fav := range m.byPair {
		if fav.UserID == userID {
			favs = append(favs, fav)
		}
	}
	sort.Slice(favs, func(i, j int) bool {
		if !favs[i].CreatedAt.Equal(favs[j].CreatedAt) {
			return favs[i].CreatedAt.After(favs[j].CreatedAt)
		}
		return favs[i].ID > favs[j].ID
	})
	return favs, nil
}
