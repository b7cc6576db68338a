package memory

import (
	"slices"
	"sync"

	"fyne.io/fyne/v2"
)

// Store is the key-value surface the repositories read and write.
// fyne.Preferences satisfies it, so an app's preferences can back the repositories.
type Store interface {
	String(key string) string
	SetString(key string, value string)
	StringList(key string) []string
	SetStringList(key string, value []string)
	FloatWithFallback(key string, fallback float64) float64
	SetFloat(key string, value float64)
	RemoveValue(key string)
}

// MapStore is a volatile Store. Values live until the process exits.
type MapStore struct {
	mu      sync.RWMutex
	strings map[string]string
	lists   map[string][]string
	floats  map[string]float64
}

// NewMapStore creates an empty store.
func NewMapStore() *MapStore {
	return &MapStore{
		strings: make(map[string]string),
		lists:   make(map[string][]string),
		floats:  make(map[string]float64),
	}
}

func (s *MapStore) String(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strings[key]
}

func (s *MapStore) SetString(key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[key] = value
}

// StringList returns a copy of the list stored under key.
func (s *MapStore) StringList(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lists[key])
}

func (s *MapStore) SetStringList(key string, value []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = slices.Clone(value)
}

func (s *MapStore) FloatWithFallback(key string, fallback float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.floats[key]; ok {
		return v
	}
	return fallback
}

func (s *MapStore) SetFloat(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floats[key] = value
}

// RemoveValue deletes key from every value kind.
func (s *MapStore) RemoveValue(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strings, key)
	delete(s.lists, key)
	delete(s.floats, key)
}

var (
	_ Store = (*MapStore)(nil)
	_ Store = (fyne.Preferences)(nil)
)
