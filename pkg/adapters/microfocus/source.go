package microfocus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/ports"
)

// Source is an ordinal source over the records of a DAT file.
type Source struct {
	path string
	opts []ReaderOption
}

// File creates a Source reading path on each iteration.
func File(path string, opts ...ReaderOption) *Source {
	return &Source{path: path, opts: opts}
}

func (s *Source) Capability() ports.Capability { return ports.Ordinal }

func (s *Source) EachIndexed(ctx context.Context, fn func(index int, record any) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := NewReader(f, s.opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: record %d: %w", s.path, i, err)
		}
		if err := fn(i, rec); err != nil {
			return err
		}
	}
}

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	header bool
	reader []ReaderOption
}

// IncludeHeader makes Parse produce a mapping of the header fields plus "records".
func IncludeHeader() ParseOption {
	return func(c *parseConfig) { c.header = true }
}

// ParseWith passes options to the underlying Reader.
func ParseWith(opts ...ReaderOption) ParseOption {
	return func(c *parseConfig) { c.reader = append(c.reader, opts...) }
}

// Parse returns an item pipeline decoding a DAT file held as a string or []byte into the
// list of its records. A nil value stays nil.
//
//	rc.Take("content").Apply(microfocus.Parse(microfocus.ParseWith(microfocus.WithLayout(l)))).
//		EachSubrecord(body, pipeline.FlushEach())
func Parse(opts ...ParseOption) pipeline.ItemPipeline {
	var cfg parseConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(it *pipeline.Item) error {
		var data []byte
		switch v := it.Value().(type) {
		case nil:
			return nil
		case []byte:
			data = v
		case string:
			data = []byte(v)
		default:
			return domain.NewValueError("parse_microfocus", v, errors.New("not a string or byte slice"))
		}
		r, err := NewReader(bytes.NewReader(data), cfg.reader...)
		if err != nil {
			return domain.NewValueError("parse_microfocus", nil, err)
		}
		recs, err := r.ReadAll()
		if err != nil {
			return domain.NewValueError("parse_microfocus", nil, err)
		}
		list := make([]any, len(recs))
		for i, rec := range recs {
			list[i] = rec
		}
		if !cfg.header {
			it.Update(list)
			return nil
		}
		m := r.Header().Map()
		m["records"] = list
		it.Update(m)
		return nil
	}
}
