package sql

import (
	"context"
	dbsql "database/sql"
	"fmt"

	"github.com/aretw0/sluice/pkg/ports"
)

// QuerySource yields the rows of a query as map[string]any records.
type QuerySource struct {
	db    *dbsql.DB
	query string
	args  []any
}

// Query creates a QuerySource. The query runs again on each iteration.
func Query(db *dbsql.DB, query string, args ...any) *QuerySource {
	return &QuerySource{db: db, query: query, args: args}
}

// Table creates a QuerySource over every row of a table.
func Table(db *dbsql.DB, d Dialect, name string) *QuerySource {
	return Query(db, "SELECT * FROM "+d.Quote(name))
}

func (s *QuerySource) Capability() ports.Capability { return ports.Ordinal }

func (s *QuerySource) EachIndexed(ctx context.Context, fn func(index int, record any) error) error {
	rows, err := s.db.QueryContext(ctx, s.query, s.args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for i := 0; rows.Next(); i++ {
		rec, err := scanRow(rows, cols)
		if err != nil {
			return err
		}
		if err := fn(i, rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanRow(rows *dbsql.Rows, cols []string) (map[string]any, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	rec := make(map[string]any, len(cols))
	for i, c := range cols {
		rec[c] = values[i]
	}
	return rec, nil
}

func scanAll(rows *dbsql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		rec, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
