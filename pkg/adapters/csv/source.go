// Package csv provides an ordinal Source over delimited text.
package csv

import (
	"bytes"
	"context"
	encsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/sluice/pkg/ports"
)

// Opener returns a fresh reader for each iteration.
type Opener func() (io.ReadCloser, error)

// Source reads one record per line. With a header (the default), records are *Row values
// addressable by column name or position; without one they are []string.
type Source struct {
	open       Opener
	comma      rune
	comment    rune
	header     bool
	lazyQuotes bool
	trim       bool
}

// Option configures a Source.
type Option func(*Source)

// WithComma sets the field delimiter. Defaults to ','.
func WithComma(r rune) Option {
	return func(s *Source) { s.comma = r }
}

// WithComment ignores lines starting with r.
func WithComment(r rune) Option {
	return func(s *Source) { s.comment = r }
}

// WithoutHeader treats the first line as data.
func WithoutHeader() Option {
	return func(s *Source) { s.header = false }
}

// WithLazyQuotes tolerates quotes appearing in unquoted fields.
func WithLazyQuotes() Option {
	return func(s *Source) { s.lazyQuotes = true }
}

// WithTrimLeadingSpace ignores leading white space in fields.
func WithTrimLeadingSpace() Option {
	return func(s *Source) { s.trim = true }
}

// New creates a Source reading from whatever open returns.
func New(open Opener, opts ...Option) *Source {
	s := &Source{open: open, comma: ',', header: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// File creates a Source over the file at path, reopened on each iteration.
func File(path string, opts ...Option) *Source {
	return New(func() (io.ReadCloser, error) { return os.Open(path) }, opts...)
}

// Bytes creates a Source over an in-memory document.
func Bytes(b []byte, opts ...Option) *Source {
	return New(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}, opts...)
}

func (s *Source) Capability() ports.Capability { return ports.Ordinal }

// EachIndexed yields data lines with their 0-based position, header excluded.
func (s *Source) EachIndexed(ctx context.Context, fn func(index int, record any) error) error {
	rc, err := s.open()
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer rc.Close()

	r := encsv.NewReader(rc)
	r.Comma = s.comma
	r.Comment = s.comment
	r.LazyQuotes = s.lazyQuotes
	r.TrimLeadingSpace = s.trim
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	var header *Header
	if s.header {
		names, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv header: %w", err)
		}
		header = NewHeader(names)
	}

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		values, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		var record any = values
		if header != nil {
			record = &Row{header: header, values: values}
		}
		if err := fn(i, record); err != nil {
			return err
		}
	}
}
