package files

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/sluice/pkg/ports"
)

// Source yields one File record per regular file selected in a directory.
// Selection is, in order of precedence: explicit names, glob patterns, the direct
// children of the directory.
type Source struct {
	dir      string
	fsys     fs.FS
	names    []string
	patterns []string
	logger   *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithFiles selects the given names, relative to the directory.
func WithFiles(names ...string) Option {
	return func(s *Source) { s.names = append(s.names, names...) }
}

// WithGlob selects the files matching any of the patterns.
// Patterns use doublestar syntax ("**/*.json", "{a,b}/*.csv").
func WithGlob(patterns ...string) Option {
	return func(s *Source) { s.patterns = append(s.patterns, patterns...) }
}

// WithFS reads from fsys instead of the operating system directory.
func WithFS(fsys fs.FS) Option {
	return func(s *Source) { s.fsys = fsys }
}

// WithLogger sets the logger used to report skipped entries.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Source over dir.
func New(dir string, opts ...Option) *Source {
	s := &Source{
		dir:    dir,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fsys == nil {
		s.fsys = os.DirFS(dir)
	}
	return s
}

func (s *Source) Capability() ports.Capability { return ports.Keyed }

// EachKeyed yields (name, *File) pairs in name order. Entries that are not regular files
// are logged and skipped.
func (s *Source) EachKeyed(ctx context.Context, fn func(key any, record any) error) error {
	names, err := s.selection()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := fs.Stat(s.fsys, name)
		if err != nil {
			return fmt.Errorf("stat %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			s.logger.Warn("not a file, skipping", "dir", s.dir, "name", name)
			continue
		}
		if err := fn(name, s.file(name, info)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) selection() ([]string, error) {
	if len(s.names) > 0 {
		return s.names, nil
	}
	if len(s.patterns) == 0 {
		entries, err := fs.ReadDir(s.fsys, ".")
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return names, nil
	}
	var names []string
	for _, pattern := range s.patterns {
		matches, err := doublestar.Glob(s.fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		names = append(names, matches...)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

func (s *Source) file(name string, info fs.FileInfo) *File {
	filename := name
	if s.dir != "" {
		filename = filepath.Join(s.dir, filepath.FromSlash(name))
	}
	path := filename
	if abs, err := filepath.Abs(filename); err == nil && s.dir != "" {
		path = abs
	}
	return &File{fsys: s.fsys, name: name, filename: filename, path: path, info: info}
}
