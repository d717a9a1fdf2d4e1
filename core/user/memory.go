package user

import (
	"context"
	"sync"
)

type Memory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
}

func NewMemory() *Memory {
	return &Memory{nextID: 1, users: make(map[int64]User)}
}

func (m *Memory) Create(ctx context.Context, usr User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == usr.Email {
			return User{}, ErrEmailTaken
		}
	}

	usr.ID = m.nextID
	m.nextID++
	m.users[usr.ID] = usr
	return usr, nil
}

func (m *Memory) Fetch(ctx context.Context, userID int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usr, ok := m.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (m *Memory) FetchByEmail(ctx context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, usr := range m.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}
