package pipeline

import (
	"errors"
	"reflect"

	"github.com/aretw0/sluice/pkg/domain"
)

var (
	errNotSequence = errors.New("not a sequence")
	errNotMapping  = errors.New("not a mapping")
)

// Elements is implemented by record values that hold a sequence of sub-values
// (a set of markup nodes, a page of rows).
type Elements interface {
	Elements() []any
}

// Coalesce replaces a sequence by its first non-nil element.
func (it *Item) Coalesce() *Item {
	if !it.live() || it.value == nil {
		return it
	}
	elems, ok := elementsOf(it.value)
	if !ok {
		it.fail(domain.NewValueError("coalesce", it.value, errNotSequence))
		return it
	}
	it.value = nil
	for _, e := range elems {
		if e != nil {
			it.value = e
			break
		}
	}
	return it
}

// Compact drops the nil elements of a sequence.
func (it *Item) Compact() *Item {
	return it.Filter(func(v any) bool { return v != nil })
}

// Filter keeps the elements for which keep returns true.
func (it *Item) Filter(keep func(any) bool) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	elems, ok := elementsOf(it.value)
	if !ok {
		it.fail(domain.NewValueError("filter", it.value, errNotSequence))
		return it
	}
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		if keep(e) {
			out = append(out, e)
		}
	}
	it.value = out
	return it
}

// Map replaces every element with fn(element).
func (it *Item) Map(fn func(any) (any, error)) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	elems, ok := elementsOf(it.value)
	if !ok {
		it.fail(domain.NewValueError("map", it.value, errNotSequence))
		return it
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		v, err := fn(e)
		if err != nil {
			it.fail(err)
			return it
		}
		out[i] = v
	}
	it.value = out
	return it
}

// MapItems runs p on a fresh Item per element and collects their final values.
func (it *Item) MapItems(p ItemPipeline) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	elems, ok := elementsOf(it.value)
	if !ok {
		it.fail(domain.NewValueError("map_items", it.value, errNotSequence))
		return it
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		child := newItem(it.ctx, e).Apply(p)
		if err := child.Err(); err != nil {
			it.fail(err)
			return it
		}
		out[i] = child.Value()
	}
	it.value = out
	return it
}

// EachOption configures EachSubrecord.
type EachOption func(*eachConfig)

type eachConfig struct {
	flush bool
	reset bool
}

// FlushEach flushes the root collector after every element.
func FlushEach() EachOption {
	return func(c *eachConfig) { c.flush = true }
}

// ResetEach resets the root collector after every element (after flushing, with FlushEach).
func ResetEach() EachOption {
	return func(c *eachConfig) { c.reset = true }
}

// EachSubrecord runs body in a SubRecord per element of a sequence. Index() inside body
// yields the element position. Together with FlushEach it emits several output records
// from one source record.
func (it *Item) EachSubrecord(body Pipeline, opts ...EachOption) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	elems, ok := elementsOf(it.value)
	if !ok {
		it.fail(domain.NewValueError("each_subrecord", it.value, errNotSequence))
		return it
	}
	var cfg eachConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	for i, e := range elems {
		sub := newElementRecord(it.ctx, newItem(it.ctx, e), i)
		if err := body(sub); err != nil {
			it.fail(err)
			return it
		}
		if !it.live() {
			return it
		}
		switch {
		case cfg.flush:
			if err := it.ctx.Flush(cfg.reset); err != nil {
				it.fail(err)
				return it
			}
		case cfg.reset:
			it.ctx.Reset()
		}
	}
	return it
}

// elementsOf exposes the elements of a sequence-like value.
func elementsOf(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case Elements:
		return s.Elements(), true
	case string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
