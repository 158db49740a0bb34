package pipeline

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
)

type captureSink struct {
	rows []map[string]any
	err  error
}

func (s *captureSink) Append(_ context.Context, c ports.Collector) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, ports.CopyFields(c))
	return nil
}

func newTestRecord(data any, opts ...RecordOption) (*Record, *captureSink) {
	sink := &captureSink{}
	return NewRecord(context.Background(), data, 0, sink, opts...), sink
}

// newLoggedRecord captures warnings written by the record's logger.
func newLoggedRecord(data any, lookups *registry.Registry) (*Record, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rc, _ := newTestRecord(data, WithLogger(logger), WithLookups(lookups))
	return rc, &buf
}
