package kvstore

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in a process-local map.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]Document
	retired  map[string]int64
	maxBytes int64
}

// NewMemoryStore returns an empty store. maxBytes <= 0 disables the quota.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document), retired: make(map[string]int64), maxBytes: maxBytes}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	value := make([]byte, len(doc.Value))
	copy(value, doc.Value)
	return &Document{Value: value, Version: doc.Version}, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error) {
	if err := checkQuota(m.maxBytes, value); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.docs[key]
	if err := checkVersion(current.Version, exists, expectedVersion); err != nil {
		return 0, err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	base := current.Version
	if !exists {
		// versions keep growing across delete/recreate so stale readers still conflict
		base = m.retired[key]
		delete(m.retired, key)
	}
	next := base + 1
	m.docs[key] = Document{Value: stored, Version: next}
	return next, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.docs[key]; ok {
		m.retired[key] = doc.Version
		delete(m.docs, key)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
