package store

import (
	"context"
	"slices"
	"sync"

	"github.com/sells-group/spinplate/internal/model"
)

// MemoryStore keeps the history in process. It backs tests and the
// "memory" driver.
type MemoryStore struct {
	mu    sync.Mutex
	h     model.History
	saves int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{h: emptyHistory()}
}

func (m *MemoryStore) Load(_ context.Context) (model.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.h
	h.Visits = slices.Clone(h.Visits)
	return normalize(h), nil
}

func (m *MemoryStore) Save(_ context.Context, h model.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h = normalize(h)
	h.Visits = slices.Clone(h.Visits)
	m.h = h
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
