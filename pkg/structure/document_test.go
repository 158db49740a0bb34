package structure

import (
	"testing"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Collector = (*Document)(nil)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want []any
	}{
		{"a", []any{"a"}},
		{"a.b", []any{"a", "b"}},
		{"tags[]", []any{"tags", nil}},
		{"lines[0].qty", []any{"lines", 0, "qty"}},
		{"lines[-1].price", []any{"lines", -1, "price"}},
		{"grid[1][2]", []any{"grid", 1, 2}},
		{"[].x", []any{nil, "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePath_Malformed(t *testing.T) {
	for _, in := range []string{"", "a..b", "a[x]", "a[1", "a]b"} {
		_, err := ParsePath(in)
		var se *domain.StructureError
		assert.ErrorAs(t, err, &se, "path %q", in)
	}
}

func TestDocument_Put(t *testing.T) {
	d := NewDocument()
	d.Put("id", 7)
	d.Put("user.name", "ana")
	d.Put("lines[].sku", "A1")
	d.Put("lines[-1].qty", 2)
	d.Put("lines[].sku", "B2")

	require.NoError(t, d.Err())
	assert.Equal(t, map[string]any{
		"id":   7,
		"user": map[string]any{"name": "ana"},
		"lines": []any{
			map[string]any{"sku": "A1", "qty": 2},
			map[string]any{"sku": "B2"},
		},
	}, d.Fields())
}

func TestDocument_KeepsFirstError(t *testing.T) {
	d := NewDocument()
	d.Put("a", 1)
	d.Put("a.b", 2)
	d.Put("c[x]", 3)

	var se *domain.StructureError
	require.ErrorAs(t, d.Err(), &se)
	assert.Equal(t, "$.a", se.Path)
}

func TestDocument_EmptyFields(t *testing.T) {
	assert.Equal(t, map[string]any{}, NewDocument().Fields())
}
