package memhost

import (
	"sync"

	"github.com/reglet-dev/hostbridge/hostapi"
)

// entry is one stored value. Exactly one of str or list is meaningful,
// selected by typ.
type entry struct {
	str  string
	list []string
	typ  hostapi.KeyType
}

// Store is the host data store. Each method is atomic on its own; ordering
// between commands is the caller's business.
type Store struct {
	data map[string]*entry
	mu   sync.RWMutex
}

func newStore() *Store {
	return &Store{data: make(map[string]*entry)}
}

// Type returns the type of the value under key.
func (s *Store) Type(key string) hostapi.KeyType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		return hostapi.KeyTypeEmpty
	}
	return e.typ
}

// GetString returns the string under key. ok is false if the key is missing
// or holds another type; use Type to tell the two apart.
func (s *Store) GetString(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || e.typ != hostapi.KeyTypeString {
		return "", false
	}
	return e.str, true
}

// SetString stores a string, replacing any previous value.
func (s *Store) SetString(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &entry{typ: hostapi.KeyTypeString, str: value}
}

// Update replaces the string under key with fn's result under the write lock.
// fn receives exists=false for a missing key. It reports wrong=true if the key
// holds another type, in which case fn is not called.
func (s *Store) Update(key string, fn func(old string, exists bool) (string, bool)) (wrong bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if ok && e.typ != hostapi.KeyTypeString {
		return true
	}
	var old string
	if ok {
		old = e.str
	}
	if next, keep := fn(old, ok); keep {
		s.data[key] = &entry{typ: hostapi.KeyTypeString, str: next}
	}
	return false
}

// Push appends values to the list under key and returns its new length.
// wrong is true if the key holds another type.
func (s *Store) Push(key string, values ...string) (length int, wrong bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		e = &entry{typ: hostapi.KeyTypeList}
		s.data[key] = e
	}
	if e.typ != hostapi.KeyTypeList {
		return 0, true
	}
	e.list = append(e.list, values...)
	return len(e.list), false
}

// List returns a copy of the list under key.
func (s *Store) List(key string) (items []string, wrong bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if e.typ != hostapi.KeyTypeList {
		return nil, true
	}
	items = make([]string, len(e.list))
	copy(items, e.list)
	return items, false
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	return ok
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
