/*
Package sluice is a record-oriented migration engine for moving data between legacy
systems.

A migration reads records from a Source, runs a Pipeline against each one and appends
what the pipeline collected to a Sink. Pipelines are plain Go functions built from
chainable Item operations (parse, format, lookup, split, match, nested sub-records), or
compiled from a declarative YAML/JSON migration file by package spec.

# Concept

Every record gets a fresh Context. Take reads a field into an Item, the Item is
transformed in place, and Put stores the result in the record's collector. Flush hands
the collector to the sink; the engine flushes once more after each record. Skip and
Stop abandon a record, and Stop also ends the migration. The first failure halts the
whole run: rows flushed before it stay in the sink.

# Usage

	eng := sluice.New(sluice.WithLogger(logger))

	src := csv.File("people.csv")
	sum, err := eng.Migrate(ctx, src, sink, func(rc pipeline.Context) error {
		rc.Take("User Id").ParseInt(10).FormatString("_legacy_user_%d").Put("username")
		rc.Take("Sex").Lookup(sexes, pipeline.PassIfNotFound()).Put("sex")
		return rc.Err()
	})

Declarative migrations are loaded and run in one call:

	m, err := spec.Load("people.yaml")
	...
	sum, err := eng.Run(ctx, m)
*/
package sluice
