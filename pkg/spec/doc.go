// Package spec loads declarative migration files and compiles them into pipelines.
//
// A migration file names a source, a sink, inline lookup tables, reusable item pipelines
// and an ordered list of field steps:
//
//	source: {type: csv, path: people.csv}
//	sink:   {type: jsonl, path: people.jsonl}
//	lookups:
//	  sex: {Male: m, Female: f}
//	pipelines:
//	  phone: [{replace_regexp: {pattern: "[^0-9]", with: ""}}]
//	fields:
//	  - take: Phone
//	    ops: [{apply: phone}]
//	    skip_if: 'value == ""'
//	    put: search
//	  - flush: {reset: false}
//
// Files are YAML unless their extension is .json. Source and sink blocks are opaque to this
// package; they are decoded by whoever builds the endpoints.
package spec
