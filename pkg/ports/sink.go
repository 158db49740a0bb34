package ports

import "context"

// Collector accumulates the output record for the current flush cycle.
type Collector interface {
	// Put assigns a value; the last write per key wins.
	Put(key string, value any)
	// Fields exposes the collected values for the sink.
	Fields() map[string]any
}

// Sink stores or forwards one collector per emitted output record.
type Sink interface {
	Append(ctx context.Context, c Collector) error
}

// CollectorFactory is implemented by sinks that need a non-default collector.
type CollectorFactory interface {
	NewCollector() Collector
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, c Collector) error

// Append implements Sink.
func (f SinkFunc) Append(ctx context.Context, c Collector) error { return f(ctx, c) }

// Row is the default collector: a plain mapping.
type Row map[string]any

// Put implements Collector.
func (r Row) Put(key string, value any) { r[key] = value }

// Fields implements Collector.
func (r Row) Fields() map[string]any { return r }

// NewCollector returns a fresh collector for sink, honouring CollectorFactory.
func NewCollector(sink Sink) Collector {
	if f, ok := sink.(CollectorFactory); ok {
		if c := f.NewCollector(); c != nil {
			return c
		}
	}
	return Row{}
}

// CopyFields returns a shallow copy of a collector's fields.
// Sinks that retain collectors must copy them, since contexts may keep writing.
func CopyFields(c Collector) map[string]any {
	src := c.Fields()
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
