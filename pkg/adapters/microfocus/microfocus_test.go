package microfocus_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/sluice/pkg/adapters/memory"
	"github.com/aretw0/sluice/pkg/adapters/microfocus"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	typ  microfocus.RecordType
	body string
}

// datFile builds a file with header and the given records, each followed by NUL padding.
func datFile(long bool, recs ...rec) []byte {
	h := make([]byte, microfocus.HeaderSize)
	if long {
		binary.BigEndian.PutUint32(h, uint32(microfocus.System)<<28|124)
	} else {
		binary.BigEndian.PutUint16(h, uint16(microfocus.System)<<12|126)
	}
	binary.BigEndian.PutUint16(h[4:], 7)
	copy(h[8:], "24013112300000")
	binary.BigEndian.PutUint16(h[36:], 62)
	h[39] = byte(microfocus.Sequential)
	h[43] = 1
	h[45] = 1
	binary.BigEndian.PutUint32(h[51:], 10)
	binary.BigEndian.PutUint32(h[55:], 80)
	binary.BigEndian.PutUint32(h[105:], 3)

	var buf bytes.Buffer
	buf.Write(h)
	for _, r := range recs {
		if long {
			var hdr [4]byte
			binary.BigEndian.PutUint32(hdr[:], uint32(r.typ)<<28|uint32(len(r.body)))
			buf.Write(hdr[:])
		} else {
			var hdr [2]byte
			binary.BigEndian.PutUint16(hdr[:], uint16(r.typ)<<12|uint16(len(r.body)))
			buf.Write(hdr[:])
		}
		buf.WriteString(r.body)
		buf.Write([]byte{0, 0, 0})
	}
	return buf.Bytes()
}

var layout = microfocus.Layout{
	{Name: "id", Offset: 0, Length: 4, Kind: microfocus.Display},
	{Name: "name", Offset: 4, Length: 8, Kind: microfocus.Text},
	{Name: "flags", Offset: 12, Length: 2, Kind: microfocus.Uint},
}

func TestParseHeader(t *testing.T) {
	h, err := microfocus.ParseHeader(datFile(false))
	require.NoError(t, err)
	assert.False(t, h.LongRecords)
	assert.Equal(t, uint16(7), h.Sequence)
	assert.Equal(t, time.Date(2024, 1, 31, 12, 30, 0, 0, time.UTC), h.CreationTime)
	assert.Equal(t, microfocus.Sequential, h.Organization)
	assert.Equal(t, uint8(1), h.IndexType)
	assert.True(t, h.VariableLength)
	assert.Equal(t, uint32(10), h.MinLength)
	assert.Equal(t, uint32(80), h.MaxLength)
	assert.Equal(t, uint32(3), h.IndexVersion)

	h, err = microfocus.ParseHeader(datFile(true))
	require.NoError(t, err)
	assert.True(t, h.LongRecords)
}

func TestParseHeader_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		patch func(b []byte)
	}{
		{"Not a system record", func(b []byte) { b[0] = byte(microfocus.Normal) << 4 }},
		{"Bad length", func(b []byte) { b[1] = 100 }},
		{"Integrity flag", func(b []byte) { b[7] = 1 }},
		{"Marker", func(b []byte) { b[37] = 61 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := datFile(false)
			tt.patch(b)
			_, err := microfocus.ParseHeader(b)
			assert.ErrorIs(t, err, microfocus.ErrInvalidHeader)
		})
	}

	_, err := microfocus.ParseHeader([]byte{0x30})
	assert.ErrorIs(t, err, microfocus.ErrInvalidHeader)
}

func TestReader(t *testing.T) {
	for _, long := range []bool{false, true} {
		data := datFile(long,
			rec{microfocus.Normal, "0001Alice   \x00\x05"},
			rec{microfocus.Deleted, "0002Bob     \x00\x00"},
			rec{microfocus.Normal, "0003Carol   \x01\x00"},
		)
		r, err := microfocus.NewReader(bytes.NewReader(data), microfocus.WithLayout(layout))
		require.NoError(t, err)
		recs, err := r.ReadAll()
		require.NoError(t, err)
		require.Len(t, recs, 3)

		assert.Equal(t, microfocus.Deleted, recs[1].Type)
		assert.Equal(t, map[string]any{"id": int64(1), "name": "Alice", "flags": int64(5)}, recs[0].Map())
		v, ok := recs[2].Field("flags")
		require.True(t, ok)
		assert.Equal(t, int64(256), v)
		v, _ = recs[2].Field("type")
		assert.Equal(t, "normal", v)
		v, ok = recs[0].Field(1)
		require.True(t, ok)
		assert.Equal(t, "Alice", v)
	}
}

func TestReader_SkipDeleted(t *testing.T) {
	data := datFile(false,
		rec{microfocus.Normal, "a"},
		rec{microfocus.Deleted, "b"},
		rec{microfocus.Normal, "c"},
	)
	r, err := microfocus.NewReader(bytes.NewReader(data), microfocus.SkipDeleted())
	require.NoError(t, err)
	recs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []byte("c"), recs[1].Body)
}

func TestReader_Truncated(t *testing.T) {
	data := datFile(false, rec{microfocus.Normal, "0001Alice"})
	data = data[:len(data)-6]
	r, err := microfocus.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = r.Next()
	assert.Error(t, err)
}

func TestSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.dat")
	require.NoError(t, os.WriteFile(path, datFile(false,
		rec{microfocus.Normal, "0001Alice   \x00\x00"},
		rec{microfocus.Normal, "0002Bob     \x00\x00"},
	), 0o644))

	src := microfocus.File(path, microfocus.WithLayout(layout))
	ports.RunSourceContract(t, src)

	sink := memory.NewSink()
	err := src.EachIndexed(context.Background(), func(i int, r any) error {
		rc := pipeline.NewRecord(context.Background(), r, i, sink)
		rc.Take("id").Put("id")
		rc.Take("name").Put("name")
		return rc.Flush(true)
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"id": int64(1), "name": "Alice"},
		{"id": int64(2), "name": "Bob"},
	}, sink.Rows())
}

func TestParse(t *testing.T) {
	data := datFile(false,
		rec{microfocus.Normal, "0001Alice   \x00\x00"},
		rec{microfocus.Normal, "0002Bob     \x00\x00"},
	)
	sink := memory.NewSink()
	rc := pipeline.NewRecord(context.Background(), map[string]any{"dat": data}, 0, sink)
	rc.Take("dat").
		Apply(microfocus.Parse(microfocus.ParseWith(microfocus.WithLayout(layout)))).
		EachSubrecord(func(sub pipeline.Context) error {
			sub.Take("name").Put("name")
			return nil
		}, pipeline.FlushEach())
	require.NoError(t, rc.Err())
	assert.Equal(t, []map[string]any{{"name": "Alice"}, {"name": "Bob"}}, sink.Rows())

	t.Run("Include header", func(t *testing.T) {
		rc := pipeline.NewRecord(context.Background(), map[string]any{"dat": string(data)}, 0, sink)
		it := rc.Take("dat").Apply(microfocus.Parse(microfocus.IncludeHeader()))
		require.NoError(t, rc.Err())
		m := it.Value().(map[string]any)
		assert.Equal(t, int64(80), m["max_length"])
		assert.Len(t, m["records"], 2)
	})

	t.Run("Nil stays nil", func(t *testing.T) {
		rc := pipeline.NewRecord(context.Background(), map[string]any{}, 0, sink)
		it := rc.Take("dat").Apply(microfocus.Parse())
		require.NoError(t, rc.Err())
		assert.Nil(t, it.Value())
	})

	t.Run("Garbage fails", func(t *testing.T) {
		rc := pipeline.NewRecord(context.Background(), map[string]any{"dat": "nope"}, 0, sink)
		rc.Take("dat").Apply(microfocus.Parse())
		var ve *domain.ValueError
		assert.ErrorAs(t, rc.Err(), &ve)
	})
}
