// Package sharedmemory implements the process-wide key→bytes map that
// backs the shared_memory_* import family (spec.md §4.1). It is shared by
// reference across all workers with reader/writer discipline: many readers,
// one writer, no deletion.
package sharedmemory

import "sync"

// Store is a thread-safe, in-memory key→bytes map. The zero value is not
// usable; construct one with New.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty, ready-to-use Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Contains reports whether the most recent operation for key was a Put.
func (s *Store) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Get returns the value most recently Put under key. ok is false iff the
// key has never been written; an empty (but present) value is distinct
// from an absent one.
func (s *Store) Get(key string) (value []byte, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.data[key]
	if !ok {
		return nil, false
	}
	value = make([]byte, len(stored))
	copy(value, stored)
	return value, true
}

// Put overwrites the value stored under key. A successful Put guarantees
// the next Get for key returns exactly value.
func (s *Store) Put(key string, value []byte) {
	// Defensive copy: the guest's buffer backing value is only valid for
	// the duration of the host import call that produced it.
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = stored
}

// PutString and GetString are typed conveniences over Put and Get for
// string values; in this module only the tests call them.
func (s *Store) PutString(key, value string) {
	s.Put(key, []byte(value))
}

func (s *Store) GetString(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	return string(v), true
}
