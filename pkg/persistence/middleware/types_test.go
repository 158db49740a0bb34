package middleware_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/adapters/jsonl"
	"github.com/aretw0/sluice/pkg/persistence/middleware"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/structure"
)

func TestWrap_KeepsCollectorFactory(t *testing.T) {
	var buf bytes.Buffer
	mask, err := middleware.NewPIIMiddleware([]string{"email"})
	require.NoError(t, err)

	sink := middleware.Wrap(jsonl.NewSink(&buf, jsonl.WithNested()), mask)

	c := ports.NewCollector(sink)
	require.IsType(t, &structure.Document{}, c)
	c.Put("user.name", "Ann")
	c.Put("user.email", "ann@example.com")
	c.Put("tags[]", "a")
	c.Put("tags[]", "b")
	require.NoError(t, sink.Append(context.Background(), c))

	assert.JSONEq(t, `{"user": {"name": "Ann", "email": "***"}, "tags": ["a", "b"]}`, buf.String())
}

func TestWrap_PlainSinkGetsRows(t *testing.T) {
	mask, err := middleware.NewPIIMiddleware([]string{"email"})
	require.NoError(t, err)

	sink := middleware.Wrap(ports.SinkFunc(func(context.Context, ports.Collector) error { return nil }), mask)

	_, ok := sink.(ports.CollectorFactory)
	assert.False(t, ok)
	assert.IsType(t, ports.Row{}, ports.NewCollector(sink))
}
