package files

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
)

// File is a lazily-read file record.
//
// Fields: "content" (alias "contents") reads the file as a string on first use; "bytes"
// the same as []byte; "stream" an io.Reader over the contents; "name" the selection
// name; "filename" the directory-relative path; "path" the absolute path; "basename"
// the last path element; "size", "mtime", "mode" and "is_dir" come from stat.
type File struct {
	fsys     fs.FS
	name     string
	filename string
	path     string
	info     fs.FileInfo

	content []byte
	loaded  bool
}

// Field implements ports.Record. Read failures surface as a missing field; contexts use
// Load instead and fail the record.
func (f *File) Field(key any) (any, bool) {
	v, ok, err := f.Load(context.Background(), key)
	if err != nil {
		return nil, false
	}
	return v, ok
}

// Load implements ports.LazyRecord.
func (f *File) Load(_ context.Context, key any) (any, bool, error) {
	k, ok := key.(string)
	if !ok {
		return nil, false, nil
	}
	switch k {
	case "content", "contents":
		b, err := f.read()
		if err != nil {
			return nil, false, err
		}
		return string(b), true, nil
	case "bytes":
		b, err := f.read()
		if err != nil {
			return nil, false, err
		}
		return b, true, nil
	case "stream":
		b, err := f.read()
		if err != nil {
			return nil, false, err
		}
		return bytes.NewReader(b), true, nil
	case "name":
		return f.name, true, nil
	case "filename":
		return f.filename, true, nil
	case "path":
		return f.path, true, nil
	case "basename":
		return path.Base(f.name), true, nil
	case "size":
		return f.info.Size(), true, nil
	case "mtime":
		return f.info.ModTime(), true, nil
	case "mode":
		return f.info.Mode().String(), true, nil
	case "is_dir":
		return f.info.IsDir(), true, nil
	}
	return nil, false, nil
}

// Name returns the name the file was selected by.
func (f *File) Name() string { return f.name }

func (f *File) read() ([]byte, error) {
	if f.loaded {
		return f.content, nil
	}
	b, err := fs.ReadFile(f.fsys, f.name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.filename, err)
	}
	f.content, f.loaded = b, true
	return b, nil
}
