package sql

import (
	"context"
	dbsql "database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// Option configures the sinks of this package.
type Option func(*config)

type config struct {
	dialect       Dialect
	actions       map[string]MergeAction
	defaultAction MergeAction
	logger        *slog.Logger
}

func newConfig(opts []Option) config {
	cfg := config{
		dialect:       SQLite,
		defaultAction: Coalesce,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithDialect sets the placeholder dialect. Defaults to SQLite.
func WithDialect(d Dialect) Option {
	return func(c *config) {
		if d != nil {
			c.dialect = d
		}
	}
}

// WithActions sets per-column merge actions for UpsertSink.
func WithActions(actions map[string]MergeAction) Option {
	return func(c *config) { c.actions = actions }
}

// WithDefaultAction sets the merge action of columns without their own. Defaults to Coalesce.
func WithDefaultAction(a MergeAction) Option {
	return func(c *config) { c.defaultAction = a }
}

// WithLogger sets the logger used to trace statements at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (dbsql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*dbsql.Rows, error)
}

type table struct {
	db   *dbsql.DB
	name string
	cfg  config
}

func (t *table) insert(ctx context.Context, x execer, fields map[string]any) error {
	cols := sortedKeys(fields)
	if len(cols) == 0 {
		return t.exec(ctx, x, fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", t.cfg.dialect.Quote(t.name)))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (", t.cfg.dialect.Quote(t.name))
	args := make([]any, len(cols))
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.cfg.dialect.Quote(c))
		args[i] = value(fields[c])
	}
	b.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.cfg.dialect.Placeholder(i + 1))
	}
	b.WriteString(")")
	return t.exec(ctx, x, b.String(), args...)
}

func (t *table) update(ctx context.Context, x execer, set, where map[string]any) error {
	cols := sortedKeys(set)
	if len(cols) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", t.cfg.dialect.Quote(t.name))
	args := make([]any, 0, len(cols)+len(where))
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, value(set[c]))
		fmt.Fprintf(&b, "%s = %s", t.cfg.dialect.Quote(c), t.cfg.dialect.Placeholder(len(args)))
	}
	clause, args := t.where(where, args)
	b.WriteString(clause)
	return t.exec(ctx, x, b.String(), args...)
}

// where renders a WHERE clause matching every key column; nil matches NULL.
func (t *table) where(keys map[string]any, args []any) (string, []any) {
	var b strings.Builder
	for i, c := range sortedKeys(keys) {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		v := keys[c]
		if v == nil {
			fmt.Fprintf(&b, "%s IS NULL", t.cfg.dialect.Quote(c))
			continue
		}
		args = append(args, value(v))
		fmt.Fprintf(&b, "%s = %s", t.cfg.dialect.Quote(c), t.cfg.dialect.Placeholder(len(args)))
	}
	return b.String(), args
}

func (t *table) exec(ctx context.Context, x execer, query string, args ...any) error {
	t.cfg.logger.Debug("exec", "table", t.name, "query", query)
	if _, err := x.ExecContext(ctx, query, args...); err != nil {
		return &domain.SinkError{Sink: "sql:" + t.name, Err: err}
	}
	return nil
}

// InsertSink inserts one row per flush.
type InsertSink struct{ table }

// NewInsertSink creates an InsertSink writing to table name.
func NewInsertSink(db *dbsql.DB, name string, opts ...Option) *InsertSink {
	return &InsertSink{table{db: db, name: name, cfg: newConfig(opts)}}
}

func (s *InsertSink) Append(ctx context.Context, c ports.Collector) error {
	return s.insert(ctx, s.db, c.Fields())
}

// UpdateSink updates the rows whose key columns equal the collected ones.
// Rows that do not exist are not created.
type UpdateSink struct {
	table
	keys []string
}

// NewUpdateSink creates an UpdateSink over table name matching on keys.
func NewUpdateSink(db *dbsql.DB, name string, keys []string, opts ...Option) *UpdateSink {
	return &UpdateSink{table: table{db: db, name: name, cfg: newConfig(opts)}, keys: keys}
}

func (s *UpdateSink) Append(ctx context.Context, c ports.Collector) error {
	where, set := split(c.Fields(), s.keys)
	return s.update(ctx, s.db, set, where)
}

// UpsertSink inserts rows whose key is new and merges into the row that has it otherwise.
// A key matching more than one row fails with domain.ErrAmbiguousKey.
type UpsertSink struct {
	table
	keys []string
}

// NewUpsertSink creates an UpsertSink over table name matching on keys.
func NewUpsertSink(db *dbsql.DB, name string, keys []string, opts ...Option) *UpsertSink {
	return &UpsertSink{table: table{db: db, name: name, cfg: newConfig(opts)}, keys: keys}
}

func (s *UpsertSink) Append(ctx context.Context, c ports.Collector) error {
	fields := c.Fields()
	where, _ := split(fields, s.keys)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.SinkError{Sink: "sql:" + s.name, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := s.match(ctx, tx, where)
	if err != nil {
		return err
	}
	switch len(existing) {
	case 0:
		err = s.insert(ctx, tx, fields)
	case 1:
		var set map[string]any
		set, err = mergeRow(existing[0], fields, s.cfg.actions, s.cfg.defaultAction)
		if err != nil {
			return &domain.SinkError{Sink: "sql:" + s.name, Err: err}
		}
		err = s.update(ctx, tx, set, where)
	default:
		return &domain.SinkError{
			Sink: "sql:" + s.name,
			Err:  fmt.Errorf("%w: %v", domain.ErrAmbiguousKey, where),
		}
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &domain.SinkError{Sink: "sql:" + s.name, Err: err}
	}
	return nil
}

func (s *UpsertSink) match(ctx context.Context, x execer, where map[string]any) ([]map[string]any, error) {
	clause, args := s.where(where, nil)
	query := fmt.Sprintf("SELECT * FROM %s%s LIMIT 2", s.cfg.dialect.Quote(s.name), clause)
	s.cfg.logger.Debug("query", "table", s.name, "query", query)
	rows, err := x.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.SinkError{Sink: "sql:" + s.name, Err: err}
	}
	defer func() { _ = rows.Close() }()
	out, err := scanAll(rows)
	if err != nil {
		return nil, &domain.SinkError{Sink: "sql:" + s.name, Err: err}
	}
	return out, nil
}

// split partitions fields into key columns (nil when missing) and the rest.
func split(fields map[string]any, keys []string) (where, rest map[string]any) {
	where = make(map[string]any, len(keys))
	for _, k := range keys {
		where[k] = fields[k]
	}
	rest = make(map[string]any, len(fields))
	for k, v := range fields {
		if !slices.Contains(keys, k) {
			rest[k] = v
		}
	}
	return where, rest
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// value prepares a collected value as a statement argument. Nested lists and mappings are
// stored as JSON text.
func value(v any) any {
	switch x := v.(type) {
	case nil, string, []byte, bool, time.Time,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case fmt.Stringer:
		return x.String()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return v
}
