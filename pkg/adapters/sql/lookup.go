package sql

import (
	"context"
	dbsql "database/sql"
	"errors"
	"fmt"

	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/registry"
)

// LoadTable reads keyCol -> valCol from every row of a table into a lookup table.
// Later rows win on duplicate keys.
func LoadTable(ctx context.Context, db *dbsql.DB, d Dialect, name, keyCol, valCol string) (*registry.MapTable, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s", d.Quote(keyCol), d.Quote(valCol), d.Quote(name))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load lookup %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	t := registry.Map(map[any]any{})
	for rows.Next() {
		var k, v any
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("load lookup %s: %w", name, err)
		}
		t.Set(k, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load lookup %s: %w", name, err)
	}
	return t, nil
}

// Lookup returns a lookup that queries valCol of the first row whose keyCol equals the
// value, on every call. Use with Item.LookupFunc.
func Lookup(db *dbsql.DB, d Dialect, name, keyCol, valCol string) pipeline.LookupFunc {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s LIMIT 1",
		d.Quote(valCol), d.Quote(name), d.Quote(keyCol), d.Placeholder(1))
	return func(ctx context.Context, key any) (any, bool, error) {
		if key == nil {
			return nil, false, nil
		}
		var v any
		err := db.QueryRowContext(ctx, query, key).Scan(&v)
		if errors.Is(err, dbsql.ErrNoRows) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("lookup %s.%s: %w", name, keyCol, err)
		}
		return v, v != nil, nil
	}
}
