package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errContractHalt = errors.New("contract: halt")

// RunSourceContract runs a suite of tests verifying that a Source honours its declared
// capability, yields records that can be read field-by-field, and stops on callback errors.
// The source must yield at least two records and must be re-iterable.
func RunSourceContract(t *testing.T, src Source) {
	t.Helper()
	ctx := context.Background()

	t.Run("Declared capability is implemented", func(t *testing.T) {
		switch src.Capability() {
		case Ordinal:
			_, ok := src.(OrdinalSource)
			assert.True(t, ok, "ordinal source must implement OrdinalSource")
		case Keyed:
			_, ok := src.(KeyedSource)
			assert.True(t, ok, "keyed source must implement KeyedSource")
		case Plain:
			_, ok := src.(PlainSource)
			assert.True(t, ok, "plain source must implement PlainSource")
		default:
			t.Fatalf("unknown capability %v", src.Capability())
		}
	})

	t.Run("Yields records", func(t *testing.T) {
		count := 0
		err := iterate(ctx, src, func(record any) error {
			assert.NotNil(t, record)
			count++
			return nil
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 2)
	})

	t.Run("Stops on callback error", func(t *testing.T) {
		count := 0
		err := iterate(ctx, src, func(record any) error {
			count++
			return errContractHalt
		})
		assert.ErrorIs(t, err, errContractHalt, "callback error must be returned unchanged")
		assert.Equal(t, 1, count, "iteration must end at the first callback error")
	})
}

// RunSinkContract runs a suite of tests verifying that a Sink accepts its own collectors.
// fields must be values the sink can store.
func RunSinkContract(t *testing.T, sink Sink, fields map[string]any) {
	t.Helper()
	ctx := context.Background()

	t.Run("Collector is writable", func(t *testing.T) {
		c := NewCollector(sink)
		require.NotNil(t, c)
		for k, v := range fields {
			c.Put(k, v)
		}
		for k := range fields {
			assert.Contains(t, c.Fields(), k)
		}
	})

	t.Run("Append accepts a collector", func(t *testing.T) {
		c := NewCollector(sink)
		for k, v := range fields {
			c.Put(k, v)
		}
		require.NoError(t, sink.Append(ctx, c))
	})
}

func iterate(ctx context.Context, src Source, fn func(record any) error) error {
	switch s := src.(type) {
	case OrdinalSource:
		return s.EachIndexed(ctx, func(_ int, record any) error { return fn(record) })
	case KeyedSource:
		return s.EachKeyed(ctx, func(_ any, record any) error { return fn(record) })
	case PlainSource:
		return s.Each(ctx, fn)
	}
	return ErrUnsupportedSource
}

// ErrUnsupportedSource is returned for sources implementing no iteration interface.
var ErrUnsupportedSource = errors.New("source implements no iteration interface")
