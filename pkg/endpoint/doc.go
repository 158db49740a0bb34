// Package endpoint opens the sources, sinks and lookup tables a migration file describes,
// and provides the file-level ops that need an adapter (markup, Micro Focus, live lookups).
package endpoint
