package csv_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/sluice/pkg/adapters/csv"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const people = `Index,User Id,First Name,Sex,Phone
1,88F7B33d2bcf9f5,Shelby,Male,
2,f90cD3E76f1A9b9,Phillip,Female,001-084-906-7849x73518
3,DbeAb8CcdfeFC2c,Kristine,Female,241.179.9509x498
`

func collect(t *testing.T, src *csv.Source) []any {
	t.Helper()
	var out []any
	err := src.EachIndexed(context.Background(), func(i int, rec any) error {
		assert.Equal(t, len(out), i)
		out = append(out, rec)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestSource_Contract(t *testing.T) {
	ports.RunSourceContract(t, csv.Bytes([]byte(people)))
}

func TestSource_Header(t *testing.T) {
	recs := collect(t, csv.Bytes([]byte(people)))
	require.Len(t, recs, 3)

	row := recs[1].(*csv.Row)
	v, ok := row.Field("First Name")
	require.True(t, ok)
	assert.Equal(t, "Phillip", v)

	v, ok = row.Field(0)
	require.True(t, ok)
	assert.Equal(t, "2", v)

	v, ok = row.Field(-1)
	require.True(t, ok)
	assert.Equal(t, "001-084-906-7849x73518", v)

	_, ok = row.Field("Missing")
	assert.False(t, ok)

	first := recs[0].(*csv.Row)
	v, ok = first.Field("Phone")
	require.True(t, ok)
	assert.Equal(t, "", v)

	assert.Equal(t, "Shelby", first.Map()["First Name"])
}

func TestSource_WithoutHeader(t *testing.T) {
	recs := collect(t, csv.Bytes([]byte("a;b\nc;d\n"), csv.WithoutHeader(), csv.WithComma(';')))
	assert.Equal(t, []any{[]string{"a", "b"}, []string{"c", "d"}}, recs)
}

func TestSource_RaggedLines(t *testing.T) {
	recs := collect(t, csv.Bytes([]byte("a,b,c\n1,2\n")))
	require.Len(t, recs, 1)
	row := recs[0].(*csv.Row)
	_, ok := row.Field("c")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"a": "1", "b": "2", "c": nil}, row.Map())
}

func TestSource_Empty(t *testing.T) {
	assert.Empty(t, collect(t, csv.Bytes(nil)))
	assert.Empty(t, collect(t, csv.Bytes([]byte("only,header\n"))))
}

func TestSource_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(people), 0o644))

	src := csv.File(path)
	assert.Len(t, collect(t, src), 3)
	// Re-iterable: the file is reopened.
	assert.Len(t, collect(t, src), 3)

	err := csv.File(filepath.Join(t.TempDir(), "missing.csv")).
		EachIndexed(context.Background(), func(int, any) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSource_OpenerError(t *testing.T) {
	boom := errors.New("boom")
	src := csv.New(func() (io.ReadCloser, error) { return nil, boom })
	err := src.EachIndexed(context.Background(), func(int, any) error { return nil })
	assert.ErrorIs(t, err, boom)
}

func TestSource_Malformed(t *testing.T) {
	src := csv.Bytes([]byte("a,b\n\"unterminated,2\n"))
	err := src.EachIndexed(context.Background(), func(int, any) error { return nil })
	assert.Error(t, err)
}
