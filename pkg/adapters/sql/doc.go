// Package sql connects migrations to relational databases through database/sql.
//
// Sinks write one row per flushed collector: InsertSink always inserts, UpdateSink
// updates the rows matching key columns, and UpsertSink merges into the single matching
// row (or inserts) following per-column MergeActions. QuerySource reads query results as
// records, LoadTable builds in-memory lookup tables and Lookup queries on demand.
//
// The pure-Go SQLite driver ("sqlite") and the pgx PostgreSQL driver ("pgx") are
// registered by this package; Open picks the placeholder Dialect to match.
package sql
