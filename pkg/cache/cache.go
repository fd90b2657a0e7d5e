// Package cache provides the run-scoped answer store used while prompting
// for workflow parameters.
package cache

import (
	"maps"
	"slices"
)

// Store is a write-once map from key to value. Once a key has a value it is
// never replaced or evicted; the store lives as long as the run that owns it.
type Store[V any] struct {
	values map[string]V
}

// New returns an empty store.
func New[V any]() *Store[V] {
	return &Store[V]{values: make(map[string]V)}
}

// Get returns the value cached for key.
func (s *Store[V]) Get(key string) (V, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Put stores v under key unless key is already present. It reports whether
// the value was stored.
func (s *Store[V]) Put(key string, v V) bool {
	if _, ok := s.values[key]; ok {
		return false
	}
	s.values[key] = v
	return true
}

// Resolve returns the cached value for key, calling fn to produce and store
// it on a miss. fn is never called twice for the same key.
func (s *Store[V]) Resolve(key string, fn func() (V, error)) (V, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		var zero V
		return zero, err
	}
	s.values[key] = v
	return v, nil
}

func (s *Store[V]) Len() int {
	return len(s.values)
}

// Keys returns the cached keys in sorted order.
func (s *Store[V]) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}
