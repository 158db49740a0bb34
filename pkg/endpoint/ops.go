package endpoint

import (
	"errors"
	"fmt"

	"github.com/aretw0/sluice/pkg/adapters/markup"
	"github.com/aretw0/sluice/pkg/adapters/microfocus"
	redisadapter "github.com/aretw0/sluice/pkg/adapters/redis"
	sqladapter "github.com/aretw0/sluice/pkg/adapters/sql"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/spec"
)

// Ops returns the adapter ops, for spec.Compile. Live lookups open their connections
// through the set, so they are closed with it.
func (s *Set) Ops() []spec.CompileOption {
	return []spec.CompileOption{
		spec.WithOp("parse_html", parseMarkup(markup.ParseHTML)),
		spec.WithOp("parse_html_fragment", parseMarkup(markup.ParseHTMLFragment)),
		spec.WithOp("parse_xml", parseMarkup(markup.ParseXML)),
		spec.WithOp("css", selector(markup.Select)),
		spec.WithOp("at_css", selector(markup.SelectFirst)),
		spec.WithOp("content", fixed(markup.Content)),
		spec.WithOp("node_name", fixed(markup.NodeName)),
		spec.WithOp("decode_html", fixed(markup.DecodeHTML)),
		spec.WithOp("encode_html", encodeHTML),
		spec.WithOp("parse_microfocus", parseMicrofocus),
		spec.WithOp("db_lookup", s.dbLookup),
		spec.WithOp("redis_lookup", s.redisLookup),
	}
}

func fixed(p pipeline.ItemPipeline) spec.OpFunc {
	return func(_ *spec.Compiler, args any) (pipeline.ItemPipeline, error) {
		if args != nil {
			return nil, fmt.Errorf("takes no arguments, got %v", args)
		}
		return p, nil
	}
}

// parseMarkup parses the value and, given steps, enters the document.
func parseMarkup(parse pipeline.ItemPipeline) spec.OpFunc {
	return func(c *spec.Compiler, args any) (pipeline.ItemPipeline, error) {
		body, err := c.Fields(args)
		if err != nil {
			return nil, err
		}
		if body == nil {
			return parse, nil
		}
		return func(it *pipeline.Item) error {
			it.Apply(parse).Enter(body)
			return nil
		}, nil
	}
}

func selector(fn func(string) pipeline.ItemPipeline) spec.OpFunc {
	return func(_ *spec.Compiler, args any) (pipeline.ItemPipeline, error) {
		sel, ok := args.(string)
		if !ok || sel == "" {
			return nil, fmt.Errorf("want a selector, got %v", args)
		}
		return fn(sel), nil
	}
}

func encodeHTML(c *spec.Compiler, args any) (pipeline.ItemPipeline, error) {
	var a struct {
		NL2BR bool `mapstructure:"nl2br"`
	}
	if args != nil {
		if err := c.Decode(args, &a); err != nil {
			return nil, err
		}
	}
	return markup.EncodeHTML(a.NL2BR), nil
}

func parseMicrofocus(c *spec.Compiler, args any) (pipeline.ItemPipeline, error) {
	var cfg microfocusConfig
	if args != nil {
		if err := c.Decode(args, &cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Path != "" {
		return nil, errors.New("path is not an op argument")
	}
	readerOpts, err := cfg.readerOptions()
	if err != nil {
		return nil, err
	}
	opts := []microfocus.ParseOption{microfocus.ParseWith(readerOpts...)}
	if cfg.IncludeHeader {
		opts = append(opts, microfocus.IncludeHeader())
	}
	return microfocus.Parse(opts...), nil
}

type missPolicy struct {
	PassIfNotFound bool  `mapstructure:"pass_if_not_found"`
	Warn           *bool `mapstructure:"warn"`
}

func (m missPolicy) options() []pipeline.LookupOption {
	var opts []pipeline.LookupOption
	if m.PassIfNotFound {
		opts = append(opts, pipeline.PassIfNotFound())
	}
	if m.Warn != nil {
		opts = append(opts, pipeline.WarnIfNotFound(*m.Warn))
	}
	return opts
}

// dbLookup queries a table per value, for tables too large to load.
func (s *Set) dbLookup(_ *spec.Compiler, args any) (pipeline.ItemPipeline, error) {
	var a sqlConfig
	var miss missPolicy
	if err := decodeLoose(args, &a, &miss); err != nil {
		return nil, err
	}
	driver, err := sqlDriver("sql", a)
	if err != nil {
		return nil, err
	}
	if a.Table == "" || a.Key == "" || a.Value == "" {
		return nil, errors.New("table, key and value are required")
	}
	db, dialect, err := s.database(driver, a.DSN)
	if err != nil {
		return nil, err
	}
	fn := sqladapter.Lookup(db, dialect, a.Table, a.Key, a.Value)
	opts := miss.options()
	return func(it *pipeline.Item) error {
		it.LookupFunc(fn, opts...)
		return nil
	}, nil
}

// redisLookup reads a hash field, or the string at prefix + value, per value.
func (s *Set) redisLookup(_ *spec.Compiler, args any) (pipeline.ItemPipeline, error) {
	var a redisConfig
	var miss missPolicy
	if err := decodeLoose(args, &a, &miss); err != nil {
		return nil, err
	}
	var fn pipeline.LookupFunc
	switch {
	case a.Key != "":
		fn = redisadapter.HashLookup(s.redis(a), a.Key)
	case a.Prefix != "":
		fn = redisadapter.KeyLookup(s.redis(a), a.Prefix)
	default:
		return nil, errors.New("key or prefix is required")
	}
	opts := miss.options()
	return func(it *pipeline.Item) error {
		it.LookupFunc(fn, opts...)
		return nil
	}, nil
}

// decodeLoose decodes one argument mapping into several structs, each taking its own keys.
func decodeLoose(args any, outs ...any) error {
	m, ok := args.(map[string]any)
	if !ok {
		return fmt.Errorf("want a mapping, got %v", args)
	}
	for _, out := range outs {
		if err := spec.Endpoint(m).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
