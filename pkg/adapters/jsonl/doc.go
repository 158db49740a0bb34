// Package jsonl reads and writes JSON documents: a source over a file holding either a
// JSON array or a stream of values (one per line, typically), and a sink writing one
// object per line.
package jsonl
