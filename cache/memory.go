package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage keeps all stores in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	stores map[string]*memoryStore
	order  []string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		stores: map[string]*memoryStore{},
	}
}

type memoryStore struct {
	name    string
	mu      sync.RWMutex
	entries map[string]*Response
	deleted bool
}

func (m *MemoryStorage) Open(_ context.Context, name string) (Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[name]; ok {
		return s, nil
	}
	s := &memoryStore{
		name:    name,
		entries: map[string]*Response{},
	}
	m.stores[name] = s
	m.order = append(m.order, name)
	return s, nil
}

func (m *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[name]
	if !ok {
		return false, nil
	}
	s.mu.Lock()
	s.deleted = true
	s.entries = nil
	s.mu.Unlock()
	delete(m.stores, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MemoryStorage) Names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.order...), nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (s *memoryStore) Name() string {
	return s.name
}

func (s *memoryStore) Get(_ context.Context, key string) (*Response, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return res.Clone(), true, nil
}

func (s *memoryStore) Put(_ context.Context, key string, res *Response) error {
	stored := res.Clone()
	stored.StoredAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return ErrStoreDeleted
	}
	s.entries[key] = stored
	return nil
}

func (s *memoryStore) Keys(_ context.Context, cb func(string)) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	for _, k := range keys {
		cb(k)
	}
	return nil
}
