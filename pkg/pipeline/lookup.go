package pipeline

import (
	"context"

	"github.com/aretw0/sluice/pkg/registry"
)

// LookupOption configures the miss policy of a lookup.
type LookupOption func(*lookupConfig)

type lookupConfig struct {
	pass     bool
	warn     *bool
	fallback ItemPipeline
}

// PassIfNotFound keeps the original value when the key is missing.
func PassIfNotFound() LookupOption {
	return func(c *lookupConfig) { c.pass = true }
}

// WarnIfNotFound turns the miss warning on or off.
// By default a miss is logged unless ApplyIfNotFound is given.
func WarnIfNotFound(warn bool) LookupOption {
	return func(c *lookupConfig) { c.warn = &warn }
}

// ApplyIfNotFound runs p on the Item, still holding the unmapped value, when the key is missing.
func ApplyIfNotFound(p ItemPipeline) LookupOption {
	return func(c *lookupConfig) { c.fallback = p }
}

// LookupFunc resolves keys against an external store (a database, Redis, ...).
type LookupFunc func(ctx context.Context, key any) (value any, found bool, err error)

// Lookup replaces the value by its entry in t. nil values are left alone.
// On a miss the value becomes nil and a warning is logged, unless options say otherwise.
func (it *Item) Lookup(t registry.Table, opts ...LookupOption) *Item {
	return it.LookupFunc(func(_ context.Context, key any) (any, bool, error) {
		v, ok := t.Lookup(key)
		return v, ok, nil
	}, opts...)
}

// LookupNamed is Lookup against a table of the context's registry.
func (it *Item) LookupNamed(name string, opts ...LookupOption) *Item {
	if !it.live() {
		return it
	}
	t, err := it.ctx.Lookups().Get(name)
	if err != nil {
		it.fail(err)
		return it
	}
	return it.Lookup(t, opts...)
}

// LookupFunc is Lookup against a function. Errors from fn fail the Item.
func (it *Item) LookupFunc(fn LookupFunc, opts ...LookupOption) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	v, found, err := fn(it.ctx.Context(), it.value)
	if err != nil {
		it.fail(err)
		return it
	}
	if found {
		it.value = v
		return it
	}

	var cfg lookupConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	warn := cfg.fallback == nil
	if cfg.warn != nil {
		warn = *cfg.warn
	}
	if warn {
		it.ctx.Logger().Warn("value not found in lookup", "index", it.ctx.position(), "key", it.value)
	}
	it.ctx.root().lookupMiss(it.value)

	switch {
	case cfg.fallback != nil:
		it.Apply(cfg.fallback)
	case !cfg.pass:
		it.value = nil
	}
	return it
}
