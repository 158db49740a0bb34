package registry

import (
	"math"
	"reflect"
	"strconv"
)

// Table maps lookup keys to replacement values.
type Table interface {
	Lookup(key any) (value any, ok bool)
}

// TableFunc adapts a function to the Table interface.
type TableFunc func(key any) (any, bool)

// Lookup implements Table.
func (f TableFunc) Lookup(key any) (any, bool) { return f(key) }

// MapTable is a static in-memory table.
// Keys are normalized so that a column read as "42" finds an entry keyed by 42, and vice versa.
type MapTable struct {
	entries map[any]any
}

// Map builds a MapTable from a Go map.
func Map[K comparable, V any](m map[K]V) *MapTable {
	t := &MapTable{entries: make(map[any]any, len(m))}
	for k, v := range m {
		t.entries[normalize(k)] = v
	}
	return t
}

// Set adds or replaces an entry. Keys that cannot be map keys (slices, maps) are ignored.
func (t *MapTable) Set(key, value any) {
	if k := normalize(key); hashable(k) {
		t.entries[k] = value
	}
}

// Len returns the number of entries.
func (t *MapTable) Len() int { return len(t.entries) }

// Lookup implements Table. A key that cannot be a map key is a miss.
func (t *MapTable) Lookup(key any) (any, bool) {
	if key == nil {
		return nil, false
	}
	k := normalize(key)
	if !hashable(k) {
		return nil, false
	}
	if v, ok := t.entries[k]; ok {
		return v, true
	}
	// Cross-kind fallback between numbers and their decimal text.
	switch kk := k.(type) {
	case string:
		if n, err := strconv.ParseInt(kk, 10, 64); err == nil {
			v, ok := t.entries[n]
			return v, ok
		}
	case int64:
		v, ok := t.entries[strconv.FormatInt(kk, 10)]
		return v, ok
	case float64:
		v, ok := t.entries[strconv.FormatFloat(kk, 'f', -1, 64)]
		return v, ok
	}
	return nil, false
}

// normalize maps every integral number onto int64 and []byte onto string.
func normalize(key any) any {
	switch k := key.(type) {
	case int:
		return int64(k)
	case int8:
		return int64(k)
	case int16:
		return int64(k)
	case int32:
		return int64(k)
	case uint:
		return uintKey(uint64(k))
	case uint8:
		return int64(k)
	case uint16:
		return int64(k)
	case uint32:
		return int64(k)
	case uint64:
		return uintKey(k)
	case float32:
		return floatKey(float64(k))
	case float64:
		return floatKey(k)
	case []byte:
		return string(k)
	}
	return key
}

func hashable(k any) bool {
	return reflect.ValueOf(k).Comparable()
}

func uintKey(u uint64) any {
	if u > math.MaxInt64 {
		return u
	}
	return int64(u)
}

func floatKey(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f)
	}
	return f
}
