package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/structure"
)

// Sink writes every collector as one JSON object per line. Keys are sorted.
type Sink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	nested bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithNested collects into structure.Document, so put keys are dotted paths
// ("address.city", "phones[].number") building one nested object per line.
func WithNested() Option {
	return func(s *Sink) { s.nested = true }
}

// NewSink creates a Sink writing to w. Close does not close w.
func NewSink(w io.Writer, opts ...Option) *Sink {
	s := &Sink{enc: json.NewEncoder(w)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates (or truncates) path and writes to it. "-" writes to standard output.
func Create(path string, opts ...Option) (*Sink, error) {
	if path == "-" {
		return NewSink(os.Stdout, opts...), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	s := NewSink(f, opts...)
	s.closer = f
	return s, nil
}

// NewCollector implements ports.CollectorFactory.
func (s *Sink) NewCollector() ports.Collector {
	if s.nested {
		return structure.NewDocument()
	}
	return ports.Row{}
}

func (s *Sink) Append(_ context.Context, c ports.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(c.Fields()); err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	return nil
}

// Close closes the file opened by Create.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
