package files_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/aretw0/sluice/pkg/adapters/files"
	"github.com/aretw0/sluice/pkg/adapters/memory"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"a.json":         {Data: []byte(`{"id": 1}`)},
		"b.json":         {Data: []byte(`{"id": 2}`)},
		"notes.txt":      {Data: []byte("hello")},
		"nested/c.json":  {Data: []byte(`{"id": 3}`)},
		"nested/d/e.txt": {Data: []byte("deep")},
	}
}

func keys(t *testing.T, src *files.Source) []any {
	t.Helper()
	var got []any
	err := src.EachKeyed(context.Background(), func(key, _ any) error {
		got = append(got, key)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestSource_Contract(t *testing.T) {
	ports.RunSourceContract(t, files.New("", files.WithFS(testFS()), files.WithGlob("**/*.json")))
}

func TestSource_Selection(t *testing.T) {
	t.Run("Children skip directories", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		src := files.New("", files.WithFS(testFS()), files.WithLogger(logger))
		assert.Equal(t, []any{"a.json", "b.json", "notes.txt"}, keys(t, src))
		assert.Contains(t, buf.String(), "not a file")
		assert.Contains(t, buf.String(), "name=nested")
	})

	t.Run("Glob is recursive and sorted", func(t *testing.T) {
		src := files.New("", files.WithFS(testFS()), files.WithGlob("**/*.json"))
		assert.Equal(t, []any{"a.json", "b.json", "nested/c.json"}, keys(t, src))
	})

	t.Run("Overlapping globs yield each file once", func(t *testing.T) {
		src := files.New("", files.WithFS(testFS()), files.WithGlob("*.json", "a.*"))
		assert.Equal(t, []any{"a.json", "b.json"}, keys(t, src))
	})

	t.Run("Explicit files keep their order", func(t *testing.T) {
		src := files.New("", files.WithFS(testFS()), files.WithFiles("notes.txt", "a.json"))
		assert.Equal(t, []any{"notes.txt", "a.json"}, keys(t, src))
	})

	t.Run("Missing explicit file fails", func(t *testing.T) {
		src := files.New("", files.WithFS(testFS()), files.WithFiles("nope.txt"))
		err := src.EachKeyed(context.Background(), func(_, _ any) error { return nil })
		assert.Error(t, err)
	})
}

func TestFile_Fields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "x.txt"), []byte("payload"), 0o644))

	src := files.New(dir, files.WithGlob("**/*.txt"))
	var file *files.File
	err := src.EachKeyed(context.Background(), func(_, rec any) error {
		file = rec.(*files.File)
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, file)

	field := func(key string) any {
		v, ok := file.Field(key)
		require.True(t, ok, key)
		return v
	}
	assert.Equal(t, "payload", field("content"))
	assert.Equal(t, "payload", field("contents"))
	assert.Equal(t, []byte("payload"), field("bytes"))
	assert.Equal(t, "sub/x.txt", field("name"))
	assert.Equal(t, "x.txt", field("basename"))
	assert.Equal(t, filepath.Join(dir, "sub", "x.txt"), field("filename"))
	assert.True(t, filepath.IsAbs(field("path").(string)))
	assert.Equal(t, int64(7), field("size"))
	assert.Equal(t, false, field("is_dir"))

	stream, ok := file.Field("stream")
	require.True(t, ok)
	b, err := io.ReadAll(stream.(io.Reader))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))

	_, ok = file.Field("unknown")
	assert.False(t, ok)
}

func TestFile_ReadFailureFailsRecord(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	src := files.New(dir)
	sink := memory.NewSink()
	err := src.EachKeyed(context.Background(), func(key, rec any) error {
		require.NoError(t, os.Remove(p))
		rc := pipeline.NewRecord(context.Background(), rec, key, sink)
		rc.Take("content").Put("content")
		return rc.Err()
	})

	var se *domain.SourceError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, sink.Len())
}

func TestFile_IntoPipeline(t *testing.T) {
	src := files.New("", files.WithFS(testFS()), files.WithGlob("*.json"))
	sink := memory.NewSink()
	err := src.EachKeyed(context.Background(), func(key, rec any) error {
		rc := pipeline.NewRecord(context.Background(), rec, key, sink)
		rc.Index().Put("file")
		rc.Take("content").ParseJSON().Extract("id").Put("id")
		if err := rc.Err(); err != nil {
			return err
		}
		return rc.Flush(true)
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"file": "a.json", "id": float64(1)},
		{"file": "b.json", "id": float64(2)},
	}, sink.Rows())
}
