/*
Package pipeline implements the per-record transformation model of sluice.

A migration evaluates a Pipeline once per source record against a root Record context.
The pipeline takes fields out of the source record as Items, transforms them with
chained Item operations and puts the results into the context's collector:

	func(rc pipeline.Context) error {
		rc.Take("User Id").FormatString("_legacy_user_%s").Put("username")
		rc.Take("Sex").LookupNamed("sex").Put("sex")
		rc.Take("Birthday").ParseDate("01/02/2006", pipeline.ZeroDate()).FormatDate("").Put("birthday")
		return nil
	}

# Failure Model

Item operations never return errors. The first failure of an Item is recorded on the Item
and reported at once to the root context; from then on every operation of that record is
a no-op, and the migration driver returns the error after the pipeline finishes. Absent
values (nil) flow through most operations unchanged.

Skip and Stop travel the same path as a *domain.Signal and are interpreted by the driver:
skip abandons the record, stop abandons it and ends the migration.

# Nesting

When a value is record-shaped (split tokens, parsed JSON, regexp captures, markup nodes),
Enter and EachSubrecord open a SubRecord over it. A SubRecord reads fields from the value
but delegates every write, flush and control signal to its parent, transitively to the root.
*/
package pipeline
