package pipeline

import (
	"context"
	"log/slog"

	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
)

// SubRecord is a record-shaped view over the value of an Item.
// Reads resolve against the value; writes, flushes and signals go to the parent.
type SubRecord struct {
	parent   Context
	item     *Item
	index    any
	hasIndex bool
}

// NewSubRecord opens a sub-record over the current value of it, delegating to parent.
func NewSubRecord(parent Context, it *Item) *SubRecord {
	return &SubRecord{parent: parent, item: it}
}

// newElementRecord opens a sub-record whose Index is the element position.
func newElementRecord(parent Context, it *Item, index int) *SubRecord {
	return &SubRecord{parent: parent, item: it, index: index, hasIndex: true}
}

func (s *SubRecord) Take(key any, opts ...TakeOption) *Item {
	return take(s, s.item.Value(), key, opts)
}

func (s *SubRecord) Static(value any, opts ...TakeOption) *Item {
	return process(s, value, opts)
}

func (s *SubRecord) Index(opts ...TakeOption) *Item {
	return process(s, s.position(), opts)
}

func (s *SubRecord) CollectList(items ...*Item) *Item {
	return collectList(s, items)
}

func (s *SubRecord) CollectFormatString(template string, items ...*Item) *Item {
	return collectFormatString(s, template, items)
}

// Item returns the Item whose value this sub-record reads.
func (s *SubRecord) Item() *Item { return s.item }

func (s *SubRecord) Put(key string, value any) { s.parent.Put(key, value) }

func (s *SubRecord) Flush(reset bool) error { return s.parent.Flush(reset) }

func (s *SubRecord) Reset() { s.parent.Reset() }

func (s *SubRecord) Skip() error { return s.parent.Skip() }

func (s *SubRecord) Stop() error { return s.parent.Stop() }

func (s *SubRecord) Data() any { return s.item.Value() }

func (s *SubRecord) Collector() ports.Collector { return s.parent.Collector() }

func (s *SubRecord) Lookups() *registry.Registry { return s.parent.Lookups() }

func (s *SubRecord) Logger() *slog.Logger { return s.parent.Logger() }

func (s *SubRecord) Context() context.Context { return s.parent.Context() }

func (s *SubRecord) Err() error { return s.parent.Err() }

func (s *SubRecord) root() *Record { return s.parent.root() }

func (s *SubRecord) position() any {
	if s.hasIndex {
		return s.index
	}
	return s.parent.position()
}
