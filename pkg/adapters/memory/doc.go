// Package memory provides in-process sources and sinks: slices, maps, iterators and Go
// structs on the way in, recorded rows and decoded structs on the way out.
package memory
