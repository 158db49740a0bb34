package memory_test

import (
	"context"
	"slices"
	"testing"

	"github.com/aretw0/sluice/pkg/adapters/memory"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	ID   int    `sluice:"id"`
	Name string `sluice:"name"`
}

func TestSliceSource_Contract(t *testing.T) {
	ports.RunSourceContract(t, memory.Records(map[string]any{"a": 1}, map[string]any{"a": 2}))
}

func TestMapSource_Contract(t *testing.T) {
	ports.RunSourceContract(t, memory.FromMap(map[string]int{"x": 1, "y": 2}))
}

func TestSeqSource_Contract(t *testing.T) {
	seq := slices.Values([]any{"a", "b", "c"})
	ports.RunSourceContract(t, memory.FromSeq(seq))
}

func TestSink_Contract(t *testing.T) {
	ports.RunSinkContract(t, memory.NewSink(), map[string]any{"a": 1})
}

func TestStructSink_Contract(t *testing.T) {
	ports.RunSinkContract(t, memory.NewStructSink[person](), map[string]any{"id": 1, "name": "ana"})
}

func TestMapSource_KeyOrder(t *testing.T) {
	src := memory.FromMap(map[string]int{"b": 2, "a": 1, "c": 3})
	var keys []any
	err := src.EachKeyed(context.Background(), func(k, _ any) error {
		keys = append(keys, k)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, keys)
}

func TestFromStructs(t *testing.T) {
	src, err := memory.FromStructs([]person{{ID: 1, Name: "ana"}})
	require.NoError(t, err)

	var got []any
	err = src.EachIndexed(context.Background(), func(_ int, rec any) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"id": 1, "name": "ana"}}, got)
}

func TestSink_CopiesCollector(t *testing.T) {
	sink := memory.NewSink()
	row := ports.Row{"a": 1}
	require.NoError(t, sink.Append(context.Background(), row))
	row["a"] = 2

	assert.Equal(t, []map[string]any{{"a": 1}}, sink.Rows())
	assert.Equal(t, 1, sink.Len())
}

func TestStructSink_WeakDecoding(t *testing.T) {
	sink := memory.NewStructSink[person]()
	require.NoError(t, sink.Append(context.Background(), ports.Row{"id": "7", "name": "bob"}))
	assert.Equal(t, []person{{ID: 7, Name: "bob"}}, sink.Items())

	err := sink.Append(context.Background(), ports.Row{"id": 1, "extra": true})
	assert.Error(t, err, "unknown keys are rejected")
}
