package endpoint

import (
	"context"
	"errors"
	"fmt"

	csvadapter "github.com/aretw0/sluice/pkg/adapters/csv"
	"github.com/aretw0/sluice/pkg/adapters/files"
	"github.com/aretw0/sluice/pkg/adapters/jsonl"
	"github.com/aretw0/sluice/pkg/adapters/markup"
	"github.com/aretw0/sluice/pkg/adapters/microfocus"
	redisadapter "github.com/aretw0/sluice/pkg/adapters/redis"
	s3adapter "github.com/aretw0/sluice/pkg/adapters/s3"
	sqladapter "github.com/aretw0/sluice/pkg/adapters/sql"
	"github.com/aretw0/sluice/pkg/persistence/middleware"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
	"github.com/aretw0/sluice/pkg/spec"
)

// OpenSource opens a source endpoint.
func (s *Set) OpenSource(ctx context.Context, ep spec.Endpoint) (ports.Source, error) {
	switch typ := ep.Type(); typ {
	case "csv":
		var c csvConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		opts, err := csvOptions(c)
		if err != nil {
			return nil, err
		}
		return csvadapter.File(s.path(c.Path), opts...), nil

	case "json", "jsonl":
		var c pathConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		return jsonl.File(s.path(c.Path)), nil

	case "files":
		var c filesConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		opts := []files.Option{files.WithLogger(s.logger)}
		if len(c.Files) > 0 {
			opts = append(opts, files.WithFiles(c.Files...))
		}
		if len(c.Glob) > 0 {
			opts = append(opts, files.WithGlob(c.Glob...))
		}
		return files.New(s.path(c.Dir), opts...), nil

	case "s3":
		var c s3Config
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		opts := []s3adapter.Option{s3adapter.WithLogger(s.logger)}
		if c.Prefix != "" {
			opts = append(opts, s3adapter.WithPrefix(c.Prefix))
		}
		if len(c.Glob) > 0 {
			opts = append(opts, s3adapter.WithGlob(c.Glob...))
		}
		if c.Bucket == "" {
			return s3adapter.OpenFromEnv(ctx, opts...)
		}
		return s3adapter.New(ctx, s3adapter.Config{
			Region:    c.Region,
			Bucket:    c.Bucket,
			Endpoint:  c.Endpoint,
			PathStyle: c.PathStyle,
		}, opts...)

	case "sql", "sqlite", "postgres":
		var c sqlConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		driver, err := sqlDriver(typ, c)
		if err != nil {
			return nil, err
		}
		db, dialect, err := s.database(driver, c.DSN)
		if err != nil {
			return nil, err
		}
		switch {
		case c.Query != "":
			return sqladapter.Query(db, c.Query), nil
		case c.Table != "":
			return sqladapter.Table(db, dialect, c.Table), nil
		}
		return nil, errors.New("query or table is required")

	case "microfocus":
		var c microfocusConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		opts, err := c.readerOptions()
		if err != nil {
			return nil, err
		}
		return microfocus.File(s.path(c.Path), opts...), nil

	case "xml", "html":
		var c pathConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		if c.Select == "" {
			return nil, errors.New("select is required")
		}
		if typ == "xml" {
			return markup.XMLFile(s.path(c.Path), c.Select)
		}
		return markup.HTMLFile(s.path(c.Path), c.Select)

	case "redis":
		var c redisConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		if c.Match == "" {
			return nil, errors.New("match is required")
		}
		return redisadapter.NewSource(s.redis(c), c.Match, s.logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

// OpenSink opens a sink endpoint, wrapped in the masking and encryption it asks for.
func (s *Set) OpenSink(ctx context.Context, ep spec.Endpoint) (ports.Sink, error) {
	sink, err := s.openSink(ctx, ep)
	if err != nil {
		return nil, err
	}
	var c protectConfig
	if err := ep.Decode(&c); err != nil {
		return nil, err
	}
	mws, err := c.middleware()
	if err != nil {
		return nil, err
	}
	return middleware.Wrap(sink, mws...), nil
}

func (s *Set) openSink(_ context.Context, ep spec.Endpoint) (ports.Sink, error) {
	switch typ := ep.Type(); typ {
	case "json", "jsonl":
		var c pathConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "-"
		}
		var opts []jsonl.Option
		if c.Nested {
			opts = append(opts, jsonl.WithNested())
		}
		sink, err := jsonl.Create(s.path(c.Path), opts...)
		if err != nil {
			return nil, err
		}
		s.onClose(sink.Close)
		return sink, nil

	case "sql", "sqlite", "postgres":
		var c sqlConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		return s.sqlSink(typ, c)

	case "redis":
		var c redisConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		var opts []redisadapter.Option
		if c.Prefix != "" {
			opts = append(opts, redisadapter.WithPrefix(c.Prefix))
		}
		if c.KeyField != "" {
			opts = append(opts, redisadapter.WithKeyField(c.KeyField))
		}
		if c.TTL > 0 {
			opts = append(opts, redisadapter.WithTTL(c.TTL))
		}
		if c.Hash {
			opts = append(opts, redisadapter.WithHash())
		}
		if c.Nested {
			opts = append(opts, redisadapter.WithNested())
		}
		return redisadapter.NewFromClient(s.redis(c), opts...), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

func (s *Set) sqlSink(typ string, c sqlConfig) (ports.Sink, error) {
	driver, err := sqlDriver(typ, c)
	if err != nil {
		return nil, err
	}
	if c.Table == "" {
		return nil, errors.New("table is required")
	}
	db, dialect, err := s.database(driver, c.DSN)
	if err != nil {
		return nil, err
	}

	opts := []sqladapter.Option{sqladapter.WithDialect(dialect), sqladapter.WithLogger(s.logger)}
	if len(c.Actions) > 0 {
		actions := make(map[string]sqladapter.MergeAction, len(c.Actions))
		for col, name := range c.Actions {
			a, err := sqladapter.ParseMergeAction(name)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			actions[col] = a
		}
		opts = append(opts, sqladapter.WithActions(actions))
	}
	if c.DefaultAction != "" {
		a, err := sqladapter.ParseMergeAction(c.DefaultAction)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sqladapter.WithDefaultAction(a))
	}

	switch c.Mode {
	case "", "insert":
		return sqladapter.NewInsertSink(db, c.Table, opts...), nil
	case "update":
		if len(c.Keys) == 0 {
			return nil, errors.New("update needs keys")
		}
		return sqladapter.NewUpdateSink(db, c.Table, c.Keys, opts...), nil
	case "upsert":
		if len(c.Keys) == 0 {
			return nil, errors.New("upsert needs keys")
		}
		return sqladapter.NewUpsertSink(db, c.Table, c.Keys, opts...), nil
	}
	return nil, fmt.Errorf("unknown sql sink mode %q", c.Mode)
}

// OpenTable loads a lookup source into memory.
func (s *Set) OpenTable(ctx context.Context, ep spec.Endpoint) (registry.Table, error) {
	switch typ := ep.Type(); typ {
	case "sql", "sqlite", "postgres":
		var c sqlConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		driver, err := sqlDriver(typ, c)
		if err != nil {
			return nil, err
		}
		if c.Table == "" || c.Key == "" || c.Value == "" {
			return nil, errors.New("table, key and value are required")
		}
		db, dialect, err := s.database(driver, c.DSN)
		if err != nil {
			return nil, err
		}
		return sqladapter.LoadTable(ctx, db, dialect, c.Table, c.Key, c.Value)

	case "redis":
		var c redisConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		if c.Key == "" {
			return nil, errors.New("key is required")
		}
		return redisadapter.LoadHash(ctx, s.redis(c), c.Key)

	case "csv":
		var c csvConfig
		if err := ep.Decode(&c); err != nil {
			return nil, err
		}
		if c.Key == "" || c.Value == "" {
			return nil, errors.New("key and value are required")
		}
		opts, err := csvOptions(c)
		if err != nil {
			return nil, err
		}
		t := registry.Map(map[string]any{})
		err = csvadapter.File(s.path(c.Path), opts...).EachIndexed(ctx, func(_ int, rec any) error {
			row, ok := rec.(ports.Record)
			if !ok {
				return errors.New("csv lookup sources need a header")
			}
			k, _ := row.Field(c.Key)
			v, _ := row.Field(c.Value)
			if k != nil {
				t.Set(k, v)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return t, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

func csvOptions(c csvConfig) ([]csvadapter.Option, error) {
	var opts []csvadapter.Option
	if c.Comma != "" {
		r, err := firstRune("comma", c.Comma)
		if err != nil {
			return nil, err
		}
		opts = append(opts, csvadapter.WithComma(r))
	}
	if c.Comment != "" {
		r, err := firstRune("comment", c.Comment)
		if err != nil {
			return nil, err
		}
		opts = append(opts, csvadapter.WithComment(r))
	}
	if c.Header != nil && !*c.Header {
		opts = append(opts, csvadapter.WithoutHeader())
	}
	if c.LazyQuotes {
		opts = append(opts, csvadapter.WithLazyQuotes())
	}
	if c.TrimLeadingSpace {
		opts = append(opts, csvadapter.WithTrimLeadingSpace())
	}
	return opts, nil
}
