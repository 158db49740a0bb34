package pipeline

import (
	"context"
	"log/slog"

	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
)

// Pipeline is a record-level transformation evaluated against a record context.
type Pipeline func(rc Context) error

// ItemPipeline is a reusable sequence of Item operations.
type ItemPipeline func(it *Item) error

// Context is the surface shared by root records and sub-records.
type Context interface {
	// Take reads a field of the underlying data into a new Item. Missing fields read as nil.
	Take(key any, opts ...TakeOption) *Item
	// Static wraps a literal value into a new Item.
	Static(value any, opts ...TakeOption) *Item
	// Index wraps the position of the current record into a new Item.
	Index(opts ...TakeOption) *Item
	// CollectList gathers the values of items into a new Item holding a []any.
	CollectList(items ...*Item) *Item
	// CollectFormatString formats the values of items into a new string Item.
	CollectFormatString(template string, items ...*Item) *Item

	// Put assigns a value into the collector.
	Put(key string, value any)
	// Flush hands the collector to the sink if anything was put since the last flush or reset.
	Flush(reset bool) error
	// Reset discards the collector and starts an empty one.
	Reset()
	// Skip abandons the current record. The returned signal should be returned by the pipeline.
	Skip() error
	// Stop abandons the current record and ends the migration.
	Stop() error

	Data() any
	Collector() ports.Collector
	Lookups() *registry.Registry
	Logger() *slog.Logger
	// Context returns the context.Context of the running migration, for adapter I/O.
	Context() context.Context
	// Err returns the failure or signal that ended the current record, if any.
	Err() error

	root() *Record
	position() any
}

// TakeOption customizes how Take, Static and Index process the new Item.
// Options run in a fixed order: convert, apply, put.
type TakeOption func(*takeConfig)

type takeConfig struct {
	put     string
	convert func(any) (any, error)
	apply   []ItemPipeline
}

// PutAs puts the processed value into the collector under key.
func PutAs(key string) TakeOption {
	return func(c *takeConfig) { c.put = key }
}

// ConvertWith runs fn on the value first.
func ConvertWith(fn func(any) (any, error)) TakeOption {
	return func(c *takeConfig) { c.convert = fn }
}

// ApplyPipeline runs p on the Item after conversion. Repeated options run in order.
func ApplyPipeline(p ItemPipeline) TakeOption {
	return func(c *takeConfig) { c.apply = append(c.apply, p) }
}

// process is the shared take/static/index path.
func process(c Context, value any, opts []TakeOption) *Item {
	it := newItem(c, value)
	if err := c.Err(); err != nil {
		it.err = err
		return it
	}
	var cfg takeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.convert != nil {
		it.Convert(cfg.convert)
	}
	if len(cfg.apply) > 0 {
		it.Apply(cfg.apply...)
	}
	if cfg.put != "" {
		it.Put(cfg.put)
	}
	return it
}

func take(c Context, data, key any, opts []TakeOption) *Item {
	if c.Err() != nil {
		return process(c, nil, opts)
	}
	v, err := load(c.Context(), data, key)
	if err != nil {
		it := newItem(c, nil)
		it.fail(err)
		return it
	}
	return process(c, v, opts)
}

func collectList(c Context, items []*Item) *Item {
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = item.Value()
	}
	return process(c, values, nil)
}

func collectFormatString(c Context, template string, items []*Item) *Item {
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = item.Value()
	}
	it := process(c, values, nil)
	if it.live() {
		s, err := sprintf(template, values)
		if err != nil {
			it.fail(err)
			return it
		}
		it.value = s
	}
	return it
}

// Chain composes item pipelines into one that runs them in order and stops at the first error.
func Chain(ps ...ItemPipeline) ItemPipeline {
	return func(it *Item) error {
		for _, p := range ps {
			if err := p(it); err != nil {
				return err
			}
			if err := it.Err(); err != nil {
				return err
			}
		}
		return nil
	}
}
