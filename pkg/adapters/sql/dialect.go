package sql

import (
	dbsql "database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Dialect renders placeholders and identifiers.
type Dialect interface {
	Placeholder(n int) string
	Quote(ident string) string
}

type questionDialect struct{}

func (questionDialect) Placeholder(int) string { return "?" }

func (questionDialect) Quote(ident string) string { return quote(ident) }

type dollarDialect struct{}

func (dollarDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (dollarDialect) Quote(ident string) string { return quote(ident) }

var (
	// SQLite uses "?" placeholders.
	SQLite Dialect = questionDialect{}
	// Postgres uses "$1", "$2", ... placeholders.
	Postgres Dialect = dollarDialect{}
)

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// DialectFor returns the dialect of a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	}
	return nil, fmt.Errorf("unsupported sql driver %q", driver)
}

// Open opens and pings a database. driver is "sqlite" or "postgres" (alias "pgx").
func Open(driver, dsn string) (*dbsql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, nil, err
	}
	name := "sqlite"
	if dialect == Postgres {
		name = "pgx"
	}
	db, err := dbsql.Open(name, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, dialect, nil
}
