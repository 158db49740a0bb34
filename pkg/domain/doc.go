/*
Package domain contains the shared vocabulary of the sluice migration engine.

It defines the error taxonomy used across the engine and its adapters, the control
signals used to abandon a record (skip) or the whole migration (stop), and the
lifecycle hooks used for observability. This package is kept pure and free of I/O,
following Hexagonal Architecture principles.

# Error Taxonomy

  - ValueError: a transformation cannot interpret its input.
  - StructureError: a nested-structure access conflicts with the decided kind.
  - SourceError / SinkError: data access or append failures in adapters.
  - Signal: skip or stop. Not a failure; only the migration driver interprets it.
*/
package domain
