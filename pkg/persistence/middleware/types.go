package middleware

import "github.com/aretw0/sluice/pkg/ports"

// Middleware allows wrapping a Sink to add behavior.
type Middleware func(ports.Sink) ports.Sink

// Wrap applies mws to sink; the first one sees the collector first.
// A wrapped sink's CollectorFactory stays visible through every layer.
func Wrap(sink ports.Sink, mws ...Middleware) ports.Sink {
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped := mws[i](sink)
		if f, ok := sink.(ports.CollectorFactory); ok {
			if _, ok := wrapped.(ports.CollectorFactory); !ok {
				wrapped = factorySink{Sink: wrapped, factory: f}
			}
		}
		sink = wrapped
	}
	return sink
}

// factorySink forwards NewCollector to the sink beneath a middleware.
type factorySink struct {
	ports.Sink
	factory ports.CollectorFactory
}

func (s factorySink) NewCollector() ports.Collector { return s.factory.NewCollector() }
