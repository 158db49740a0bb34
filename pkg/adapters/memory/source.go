package memory

import (
	"cmp"
	"context"
	"iter"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/sluice/pkg/ports"
)

// SliceSource yields the records of a slice with their position.
type SliceSource struct {
	records []any
}

// FromSlice creates an ordinal source over items.
func FromSlice[T any](items []T) *SliceSource {
	records := make([]any, len(items))
	for i, item := range items {
		records[i] = item
	}
	return &SliceSource{records: records}
}

// Records creates an ordinal source over the given records.
func Records(records ...any) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Capability() ports.Capability { return ports.Ordinal }

func (s *SliceSource) EachIndexed(ctx context.Context, fn func(int, any) error) error {
	for i, rec := range s.records {
		if err := fn(i, rec); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of records.
func (s *SliceSource) Len() int { return len(s.records) }

// MapSource yields the entries of a map in key order; the key becomes the record index.
type MapSource[K cmp.Ordered, V any] struct {
	entries map[K]V
}

// FromMap creates a keyed source over m.
func FromMap[K cmp.Ordered, V any](m map[K]V) *MapSource[K, V] {
	return &MapSource[K, V]{entries: m}
}

func (s *MapSource[K, V]) Capability() ports.Capability { return ports.Keyed }

func (s *MapSource[K, V]) EachKeyed(ctx context.Context, fn func(any, any) error) error {
	keys := make([]K, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := fn(k, s.entries[k]); err != nil {
			return err
		}
	}
	return nil
}

// SeqSource yields the values of an iterator; positions are assigned by the driver.
type SeqSource struct {
	seq iter.Seq[any]
}

// FromSeq creates a plain source over seq.
func FromSeq(seq iter.Seq[any]) *SeqSource {
	return &SeqSource{seq: seq}
}

func (s *SeqSource) Capability() ports.Capability { return ports.Plain }

func (s *SeqSource) Each(ctx context.Context, fn func(any) error) error {
	for rec := range s.seq {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// FromStructs creates an ordinal source whose records are the fields of items, keyed by
// their `sluice` tag or field name.
func FromStructs[T any](items []T) (*SliceSource, error) {
	records := make([]any, len(items))
	for i, item := range items {
		m := map[string]any{}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName: tagName,
			Result:  &m,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(item); err != nil {
			return nil, err
		}
		records[i] = m
	}
	return &SliceSource{records: records}, nil
}

const tagName = "sluice"
