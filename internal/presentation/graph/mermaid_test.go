package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/sluice/internal/presentation/graph"
	"github.com/aretw0/sluice/pkg/spec"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		contains []string
	}{
		{
			name: "Endpoints",
			doc: `
source: {type: csv, path: people.csv}
sink: {type: sqlite, table: people}
fields: [{take: a, put: a}]`,
			contains: []string{
				`source[("csv: people.csv")]`,
				`sink[("sqlite: people")]`,
				`source --> step_0`,
				`step_0 -- "a" --> sink`,
			},
		},
		{
			name: "Lookups and Pipelines",
			doc: `
lookups: {sex: {F: f}}
lookup_sources: {owner-names: {type: csv, path: o.csv, key: id, value: name}}
pipelines: {phone: [trim]}
fields:
  - take: Sex
    ops: [{lookup: sex}, {apply: phone}, {lookup: {table: owner-names}}]
    put: sex`,
			contains: []string{
				`lookup_sex[["sex"]]`,
				`lookup_owner_names[["owner-names"]]`,
				`pipeline_phone[["phone"]]`,
				`step_0["take Sex<br/>lookup, apply, lookup"]`,
				`lookup_sex -.-> step_0`,
				`pipeline_phone -.-> step_0`,
				`lookup_owner_names -.-> step_0`,
			},
		},
		{
			name: "Flush, Reset and Conditions",
			doc: `
fields:
  - static: 1
    put: one
    skip_if: 'value == 2'
  - flush: {}
  - reset: true`,
			contains: []string{
				`step_0["static 1"]`,
				`-- "one if not value == 2" -->`,
				`step_1{{"flush"}}`,
				`step_1 -.-> sink`,
				`step_2{{"reset"}}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := spec.Parse([]byte(tt.doc), "yaml")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got := graph.GenerateMermaid(m)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}
}
