package store

import (
	"maps"
	"slices"
)

// Snapshot is a shallow copy of the store contents at one instant.
type Snapshot map[string]any

// Get returns the value stored under key.
func (s Snapshot) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// Has reports whether key is present.
func (s Snapshot) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the snapshot keys in sorted order.
func (s Snapshot) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Len returns the number of keys in the snapshot.
func (s Snapshot) Len() int {
	return len(s)
}

// Clone returns an independent shallow copy. Cloning a nil snapshot yields an
// empty, non-nil one.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return maps.Clone(s)
}
