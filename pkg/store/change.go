package store

import (
	"maps"
	"reflect"
	"slices"
)

// Change records the value of a key before and after a mutation.
// Old is nil when the key did not exist.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ChangeSet maps each changed key to its old and new value.
type ChangeSet map[string]Change

// Has reports whether key is part of the change set.
func (c ChangeSet) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Keys returns the changed keys in sorted order.
func (c ChangeSet) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Len returns the number of changed keys.
func (c ChangeSet) Len() int {
	return len(c)
}

// Diff compares old against the values in partial and returns the keys whose
// value differs. Keys of old that are absent from partial are never reported.
func Diff(old Snapshot, partial map[string]any) ChangeSet {
	changes := make(ChangeSet)
	for key, next := range partial {
		prev := old[key]
		if !Same(prev, next) {
			changes[key] = Change{Old: prev, New: next}
		}
	}
	return changes
}

// Same reports whether a and b are the same value for change detection.
//
// Comparable values are compared with ==, so NaN is never the same as itself.
// Maps, slices, channels and pointers compare by identity; two slices are the
// same only when they share a backing array and length. Functions and values
// that cannot be compared are always different. Same never panics.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return false
	}

	if !va.Type().Comparable() {
		return false
	}
	return safeEqual(a, b)
}

// safeEqual guards == against structs and arrays whose interface fields hold
// incomparable values.
func safeEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}
