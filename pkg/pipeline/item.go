package pipeline

// Item is a mutable cell holding one value on its way from the source record to the collector.
type Item struct {
	value    any
	original any
	ctx      Context
	err      error
}

func newItem(c Context, value any) *Item {
	return &Item{value: value, original: value, ctx: c}
}

// Value returns the current value.
func (it *Item) Value() any { return it.value }

// Original returns the value the Item was created with.
func (it *Item) Original() any { return it.original }

// Err returns the failure recorded on this Item, if any.
func (it *Item) Err() error { return it.err }

// Context returns the record context the Item belongs to.
func (it *Item) Context() Context { return it.ctx }

// live reports whether operations should still run.
func (it *Item) live() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}
	return true
}

// fail records err on the Item and on the root context.
func (it *Item) fail(err error) {
	if it.err == nil {
		it.err = err
	}
	it.ctx.root().fail(err)
}

// Update replaces the value unconditionally.
func (it *Item) Update(v any) *Item {
	if it.live() {
		it.value = v
	}
	return it
}

// Convert replaces the value with fn(value).
func (it *Item) Convert(fn func(any) (any, error)) *Item {
	if !it.live() {
		return it
	}
	v, err := fn(it.value)
	if err != nil {
		it.fail(err)
		return it
	}
	it.value = v
	return it
}

// Apply runs reusable pipelines on the Item, in order.
func (it *Item) Apply(ps ...ItemPipeline) *Item {
	for _, p := range ps {
		if !it.live() {
			return it
		}
		if err := p(it); err != nil {
			it.fail(err)
		}
	}
	return it
}

// Scope returns an independent Item holding the current value, so that operations on it do
// not affect this one.
func (it *Item) Scope() *Item {
	s := newItem(it.ctx, it.value)
	s.err = it.err
	return s
}

// Extract replaces the value with one of its fields. Missing fields read as nil.
func (it *Item) Extract(key any) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	v, err := load(it.ctx.Context(), it.value, key)
	if err != nil {
		it.fail(err)
		return it
	}
	it.value = v
	return it
}

// Default replaces a nil value.
func (it *Item) Default(v any) *Item {
	if it.live() && it.value == nil {
		it.value = v
	}
	return it
}

// Inspect logs the current value.
func (it *Item) Inspect() *Item {
	if it.live() {
		it.ctx.Logger().Info("inspect", "index", it.ctx.position(), "value", it.value)
	}
	return it
}

// Put commits the current value into the collector under key.
func (it *Item) Put(key string) *Item {
	if it.live() {
		it.ctx.Put(key, it.value)
	}
	return it
}

// Skip abandons the current record.
func (it *Item) Skip() error { return it.ctx.Skip() }

// Stop abandons the current record and ends the migration.
func (it *Item) Stop() error { return it.ctx.Stop() }

// Enter opens a SubRecord over the current value and runs body against it.
// A nil value is entered like any other; its fields all read as nil.
func (it *Item) Enter(body ...Pipeline) *Item {
	for _, p := range body {
		if !it.live() {
			return it
		}
		if err := p(NewSubRecord(it.ctx, it)); err != nil {
			it.fail(err)
		}
	}
	return it
}
