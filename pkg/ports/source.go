package ports

import "context"

// Capability declares how a Source is iterated by the driver.
type Capability int

const (
	// Ordinal sources yield (position, record) pairs.
	Ordinal Capability = iota
	// Keyed sources yield (key, record) pairs; the key becomes the record index.
	Keyed
	// Plain sources yield bare records; the driver assigns positions.
	Plain
)

func (c Capability) String() string {
	switch c {
	case Ordinal:
		return "ordinal"
	case Keyed:
		return "keyed"
	case Plain:
		return "plain"
	default:
		return "unknown"
	}
}

// Source is anything the driver can iterate.
// Implementations must also implement the interface matching their Capability.
type Source interface {
	Capability() Capability
}

// OrdinalSource yields records with their position.
// The callback's error must be returned unchanged, and iteration must end on it.
type OrdinalSource interface {
	Source
	EachIndexed(ctx context.Context, fn func(index int, record any) error) error
}

// KeyedSource yields records with a key (file name, primary key, ...).
// The callback's error must be returned unchanged, and iteration must end on it.
type KeyedSource interface {
	Source
	EachKeyed(ctx context.Context, fn func(key any, record any) error) error
}

// PlainSource yields records only.
// The callback's error must be returned unchanged, and iteration must end on it.
type PlainSource interface {
	Source
	Each(ctx context.Context, fn func(record any) error) error
}

// Record is implemented by source records that expose fields by name or position.
// Missing fields report ok == false and are read as absent (nil), never as an error.
type Record interface {
	Field(key any) (value any, ok bool)
}

// RecordFunc adapts a function to the Record interface.
type RecordFunc func(key any) (any, bool)

// Field implements Record.
func (f RecordFunc) Field(key any) (any, bool) { return f(key) }

// LazyRecord is implemented by records whose fields are read on demand and may fail,
// such as file contents or remote objects. Contexts prefer Load over Field when present.
type LazyRecord interface {
	Record
	Load(ctx context.Context, key any) (value any, ok bool, err error)
}
