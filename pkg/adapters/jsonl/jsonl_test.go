package jsonl_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/adapters/jsonl"
	"github.com/aretw0/sluice/pkg/ports"
)

func collect(t *testing.T, src *jsonl.Source) []any {
	t.Helper()
	var out []any
	require.NoError(t, src.EachIndexed(context.Background(), func(i int, rec any) error {
		assert.Equal(t, len(out), i)
		out = append(out, rec)
		return nil
	}))
	return out
}

func TestSource_Contract(t *testing.T) {
	ports.RunSourceContract(t, jsonl.Bytes([]byte(`{"a":1}`+"\n"+`{"a":2}`)))
}

func TestSource_Lines(t *testing.T) {
	got := collect(t, jsonl.Bytes([]byte("{\"id\": 1}\n\n{\"id\": 2, \"tags\": [\"x\"]}\n")))
	assert.Equal(t, []any{
		map[string]any{"id": float64(1)},
		map[string]any{"id": float64(2), "tags": []any{"x"}},
	}, got)
}

func TestSource_Array(t *testing.T) {
	got := collect(t, jsonl.Bytes([]byte("  \n[{\"id\": 1}, \"two\", null]")))
	assert.Equal(t, []any{map[string]any{"id": float64(1)}, "two", nil}, got)
}

func TestSource_Empty(t *testing.T) {
	assert.Empty(t, collect(t, jsonl.Bytes(nil)))
	assert.Empty(t, collect(t, jsonl.Bytes([]byte("[]"))))
}

func TestSource_Malformed(t *testing.T) {
	err := jsonl.Bytes([]byte(`{"id": 1} {"id":`)).EachIndexed(context.Background(), func(int, any) error { return nil })
	assert.Error(t, err)
}

func TestSource_MissingFile(t *testing.T) {
	err := jsonl.File(filepath.Join(t.TempDir(), "missing.jsonl")).EachIndexed(context.Background(), func(int, any) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSink_Contract(t *testing.T) {
	ports.RunSinkContract(t, jsonl.NewSink(&bytes.Buffer{}), map[string]any{"id": 1, "name": "ana"})
}

func TestSink_WritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := jsonl.NewSink(&buf)
	require.NoError(t, sink.Append(context.Background(), ports.Row{"b": 2, "a": "x"}))
	require.NoError(t, sink.Append(context.Background(), ports.Row{"nested": map[string]any{"k": nil}}))
	require.NoError(t, sink.Close())
	assert.Equal(t, "{\"a\":\"x\",\"b\":2}\n{\"nested\":{\"k\":null}}\n", buf.String())
}

func TestSink_Nested(t *testing.T) {
	var buf bytes.Buffer
	sink := jsonl.NewSink(&buf, jsonl.WithNested())
	c := ports.NewCollector(sink)
	c.Put("id", 1)
	c.Put("lines[].sku", "KB-100")
	c.Put("lines[].sku", "MS-200")
	require.NoError(t, sink.Append(context.Background(), c))
	assert.Equal(t, "{\"id\":1,\"lines\":[{\"sku\":\"KB-100\"},{\"sku\":\"MS-200\"}]}\n", buf.String())

	_, flat := ports.NewCollector(jsonl.NewSink(&buf)).(ports.Row)
	assert.True(t, flat)
}

func TestCreate_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := jsonl.Create(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), ports.Row{"id": 1}))
	require.NoError(t, sink.Close())

	got := collect(t, jsonl.File(path))
	assert.Equal(t, []any{map[string]any{"id": float64(1)}}, got)
}
