package storage

import (
	"context"
	"sync"
)

// MapStorage is a thread-safe in-memory phonebook.
// Entries are comparable, so the tuple itself is the map key
type MapStorage struct {
	data map[Entry]struct{}
	mu   sync.RWMutex
}

// NewMapStorage creates a new instance of MapStorage.
func NewMapStorage() *MapStorage {
	return &MapStorage{
		data: make(map[Entry]struct{}),
		mu:   sync.RWMutex{},
	}
}

// List returns every entry ordered by surname
func (m *MapStorage) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	entries := m.collect(func(Entry) bool { return true })
	m.mu.RUnlock()

	Sort(entries)
	return entries, nil
}

// Exists reports whether an identical entry is stored
func (m *MapStorage) Exists(_ context.Context, e Entry) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[e]
	return ok, nil
}

// Insert adds the entry. Returns ErrDuplicate if it is already stored
func (m *MapStorage) Insert(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(e)
}

// Delete removes the entry and returns 1 if it existed, 0 otherwise
func (m *MapStorage) Delete(_ context.Context, e Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[e]; ok {
		delete(m.data, e)
		return 1, nil
	}
	return 0, nil
}

// Update replaces old with updated under a single lock
func (m *MapStorage) Update(_ context.Context, old, updated Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return swap(m, m, old, updated)
}

// Search returns entries whose surname contains fragment, ignoring ASCII case
func (m *MapStorage) Search(_ context.Context, fragment string) ([]Entry, error) {
	m.mu.RLock()
	entries := m.collect(func(e Entry) bool { return e.MatchSurname(fragment) })
	m.mu.RUnlock()

	Sort(entries)
	return entries, nil
}

// Close is a no-op, kept to satisfy Storage
func (m *MapStorage) Close() error {
	return nil
}

// Len returns the number of stored entries
func (m *MapStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// collect returns the entries accepted by keep. The caller must hold the lock
func (m *MapStorage) collect(keep func(Entry) bool) []Entry {
	var entries []Entry
	for e := range m.data {
		if keep(e) {
			entries = append(entries, e)
		}
	}
	return entries
}

// insert adds e without locking. The caller must hold the write lock
func (m *MapStorage) insert(e Entry) error {
	if _, ok := m.data[e]; ok {
		return ErrDuplicate
	}
	m.data[e] = struct{}{}
	return nil
}

// swap moves old out of from and updated into to.
// Both maps must already be write-locked by the caller (they may be the same map)
func swap(from, to *MapStorage, old, updated Entry) error {
	if _, ok := from.data[old]; !ok {
		return ErrNotFound
	}
	if old == updated {
		return nil
	}
	if _, ok := to.data[updated]; ok {
		return ErrDuplicate
	}
	delete(from.data, old)
	to.data[updated] = struct{}{}
	return nil
}
