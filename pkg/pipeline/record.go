package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
)

// Record is the root context of one source record.
// It owns the collector; every SubRecord below it writes here.
type Record struct {
	ctx       context.Context
	data      any
	index     any
	sink      ports.Sink
	collector ports.Collector
	dirty     bool
	flushes   int
	err       error

	lookups *registry.Registry
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
}

// RecordOption configures a Record.
type RecordOption func(*Record)

// WithLookups sets the registry used by Item.LookupNamed.
func WithLookups(r *registry.Registry) RecordOption {
	return func(rc *Record) { rc.lookups = r }
}

// WithLogger sets the logger used for lookup warnings and Inspect.
func WithLogger(l *slog.Logger) RecordOption {
	return func(rc *Record) {
		if l != nil {
			rc.logger = l
		}
	}
}

// WithHooks sets the lifecycle hooks notified on flushes and lookup misses.
func WithHooks(h domain.LifecycleHooks) RecordOption {
	return func(rc *Record) { rc.hooks = h }
}

// NewRecord creates the root context for one source record.
func NewRecord(ctx context.Context, data, index any, sink ports.Sink, opts ...RecordOption) *Record {
	rc := &Record{
		ctx:    ctx,
		data:   data,
		index:  index,
		sink:   sink,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(rc)
	}
	rc.Reset()
	return rc
}

func (r *Record) Take(key any, opts ...TakeOption) *Item {
	return take(r, r.data, key, opts)
}

func (r *Record) Static(value any, opts ...TakeOption) *Item {
	return process(r, value, opts)
}

func (r *Record) Index(opts ...TakeOption) *Item {
	return process(r, r.index, opts)
}

func (r *Record) CollectList(items ...*Item) *Item {
	return collectList(r, items)
}

func (r *Record) CollectFormatString(template string, items ...*Item) *Item {
	return collectFormatString(r, template, items)
}

// Put merges value into the collector under key; the last write wins.
func (r *Record) Put(key string, value any) {
	if r.err != nil {
		return
	}
	r.collector.Put(key, value)
	r.dirty = true
	// Collectors that validate keys (structure.Document) report through Err.
	if v, ok := r.collector.(interface{ Err() error }); ok {
		if err := v.Err(); err != nil {
			r.fail(err)
		}
	}
}

// Flush appends the collector to the sink when it is dirty.
// With reset, a fresh collector replaces the flushed one; without it, the flushed values
// stay in place and later puts build on them.
func (r *Record) Flush(reset bool) error {
	if r.err != nil {
		return r.err
	}
	if !r.dirty {
		return nil
	}
	if err := r.sink.Append(r.ctx, r.collector); err != nil {
		var se *domain.SinkError
		if !errors.As(err, &se) {
			err = &domain.SinkError{Sink: fmt.Sprintf("%T", r.sink), Err: err}
		}
		return r.fail(err)
	}
	r.flushes++
	r.dirty = false
	if r.hooks.OnFlush != nil {
		r.hooks.OnFlush(r.ctx, &domain.FlushEvent{
			Timestamp: time.Now(),
			Index:     r.index,
			Fields:    r.collector.Fields(),
		})
	}
	if reset {
		r.Reset()
	}
	return nil
}

// Reset discards the collector.
func (r *Record) Reset() {
	r.collector = ports.NewCollector(r.sink)
	r.dirty = false
}

func (r *Record) Skip() error { return r.fail(domain.Skip()) }

func (r *Record) Stop() error { return r.fail(domain.Stop()) }

func (r *Record) Data() any { return r.data }

func (r *Record) Collector() ports.Collector { return r.collector }

func (r *Record) Lookups() *registry.Registry { return r.lookups }

func (r *Record) Logger() *slog.Logger { return r.logger }

func (r *Record) Context() context.Context { return r.ctx }

func (r *Record) Err() error { return r.err }

// Flushes reports how many collectors were appended to the sink.
func (r *Record) Flushes() int { return r.flushes }

func (r *Record) root() *Record { return r }

func (r *Record) position() any { return r.index }

// fail records the first failure or signal and returns it.
func (r *Record) fail(err error) error {
	if r.err == nil {
		r.err = err
	}
	return r.err
}

func (r *Record) lookupMiss(key any) {
	if r.hooks.OnLookupMiss != nil {
		r.hooks.OnLookupMiss(r.ctx, &domain.LookupEvent{
			Timestamp: time.Now(),
			Index:     r.index,
			Key:       key,
		})
	}
}
