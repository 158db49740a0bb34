package memory

import (
	"context"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/sluice/pkg/ports"
)

// Sink records every appended collector.
// Safe for concurrent use.
type Sink struct {
	rows []map[string]any
	mu   sync.RWMutex
}

// NewSink creates an empty recording sink.
func NewSink() *Sink {
	return &Sink{}
}

// Append stores a copy of the collected fields.
func (s *Sink) Append(ctx context.Context, c ports.Collector) error {
	row := ports.CopyFields(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

// Rows returns the recorded rows in append order.
func (s *Sink) Rows() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]any, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the number of recorded rows.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// StructSink decodes every appended collector into a T.
// Values are converted weakly ("42" fills an int field); unknown keys are an error.
type StructSink[T any] struct {
	items []T
	mu    sync.RWMutex
}

// NewStructSink creates an empty struct sink.
func NewStructSink[T any]() *StructSink[T] {
	return &StructSink[T]{}
}

// Append decodes the collected fields into a new T.
func (s *StructSink[T]) Append(ctx context.Context, c ports.Collector) error {
	var item T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          tagName,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &item,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(c.Fields()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

// Items returns the decoded values in append order.
func (s *StructSink[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
