/*
Package ports defines the driven ports (interfaces) of the sluice engine.

These interfaces decouple the migration driver from concrete data stores, allowing
the same pipeline to read rows from a CSV file, a directory of JSON documents or a
database query, and to write them into a slice, a SQL table or Redis.

# Key Interfaces

  - Source: declares one iteration Capability (Ordinal, Keyed or Plain) and implements
    the matching interface (OrdinalSource, KeyedSource, PlainSource).
  - Record: optional field access for source records that are not plain maps or slices.
  - Sink: appends one Collector per emitted output record.
  - CollectorFactory: lets a sink choose its own Collector representation.
*/
package ports
