// Package memory holds the shared keyed text log that threads context
// between pipeline stages.
//
// A Store is created once per run and handed to every agent that needs
// it. Values only grow: Append joins fragments with a newline, and the
// only way to shrink a key is Clear, which empties the whole store.
package memory

import (
	"sort"
	"sync"
)

// Separator joins fragments appended to the same key.
const Separator = "\n"

// Store is an append-only mapping from key to accumulated text.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Read returns the value stored under key, or "" if the key was never written.
func (s *Store) Read(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

// Append adds value to key. An existing value is extended with
// Separator + value; a new key is set to value.
func (s *Store) Append(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[key]; ok {
		s.data[key] = existing + Separator + value
		return
	}
	s.data[key] = value
}

// Clear removes every key.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
}

// Keys returns the written keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the current mapping.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
