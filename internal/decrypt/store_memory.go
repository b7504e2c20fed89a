package decrypt

import (
	"context"
	"sync"
)

// MemoryStore keeps authorizations for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Authorization
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Authorization)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Authorization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	auth, ok := m.items[key]
	if !ok {
		return nil, nil
	}

	return &auth, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, auth *Authorization) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = *auth

	return nil
}
