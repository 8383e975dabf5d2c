package dedup

import (
	"fmt"
)

// Store names a SeenSet implementation.
type Store string

const (
	// StoreMemory keeps every distinct key in a Go map.
	StoreMemory Store = "memory"
	// StoreSQLite keeps distinct keys in a temporary on-disk SQLite database.
	StoreSQLite Store = "sqlite"
)

// ParseStore validates a store name. An empty name means StoreMemory.
func ParseStore(s string) (Store, error) {
	switch Store(s) {
	case "", StoreMemory:
		return StoreMemory, nil
	case StoreSQLite:
		return StoreSQLite, nil
	default:
		return "", fmt.Errorf("unknown store %q (want memory or sqlite)", s)
	}
}

// SeenSet records the row keys already emitted for one file.
type SeenSet interface {
	// Add records key and reports whether it was not present before.
	Add(key []byte) (bool, error)
	// Close discards the set and any backing storage.
	Close() error
}

// OpenSeenSet creates an empty set of the given kind. path is only used by
// stores that need backing storage and must be a path on the local disk.
func OpenSeenSet(kind Store, path string) (SeenSet, error) {
	switch kind {
	case "", StoreMemory:
		return newMemorySet(), nil
	case StoreSQLite:
		return newSQLiteSet(path)
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

type memorySet struct {
	keys map[string]struct{}
}

func newMemorySet() *memorySet {
	return &memorySet{keys: make(map[string]struct{})}
}

func (m *memorySet) Add(key []byte) (bool, error) {
	if _, ok := m.keys[string(key)]; ok {
		return false, nil
	}
	m.keys[string(key)] = struct{}{}
	return true, nil
}

func (m *memorySet) Close() error {
	m.keys = nil
	return nil
}
