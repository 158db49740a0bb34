package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/sluice/pkg/spec"
)

// GenerateMermaid produces a Mermaid flowchart of a migration. It applies semantic styling:
// - Source and sink: [(Cylinder)]
// - Lookup tables and named pipelines: [[Subroutine]]
// - Flush and reset steps: {{Hexagon}}
// - Value steps: [Rectangle]
// Conditions label the edge from a step to the sink.
func GenerateMermaid(m *spec.Migration) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	fmt.Fprintf(&sb, "    source[(\"%s\")]\n", escape(describe(m.Source)))
	fmt.Fprintf(&sb, "    sink[(\"%s\")]\n", escape(describe(m.Sink)))

	tables := slices.Sorted(maps.Keys(m.Lookups))
	for name := range m.LookupSources {
		if !slices.Contains(tables, name) {
			tables = append(tables, name)
		}
	}
	slices.Sort(tables)
	for _, name := range tables {
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", sanitizeMermaidID("lookup_"+name), escape(name))
	}
	for _, name := range slices.Sorted(maps.Keys(m.Pipelines)) {
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", sanitizeMermaidID("pipeline_"+name), escape(name))
	}

	writeSteps(&sb, "step", m.Fields)
	return sb.String()
}

func writeSteps(sb *strings.Builder, prefix string, steps []spec.Step) {
	for i, s := range steps {
		id := fmt.Sprintf("%s_%d", prefix, i)
		switch {
		case s.Flush != nil:
			fmt.Fprintf(sb, "    %s{{\"flush\"}}\n", id)
			fmt.Fprintf(sb, "    %s -.-> sink\n", id)
			continue
		case s.Reset:
			fmt.Fprintf(sb, "    %s{{\"reset\"}}\n", id)
			continue
		}

		label := stepSource(s)
		if names := opNames(s.Ops); len(names) > 0 {
			label += "<br/>" + strings.Join(names, ", ")
		}
		fmt.Fprintf(sb, "    %s[\"%s\"]\n", id, escape(label))
		if s.Take != nil || s.Self || s.Index {
			fmt.Fprintf(sb, "    source --> %s\n", id)
		}

		for _, ref := range references(s.Ops) {
			fmt.Fprintf(sb, "    %s -.-> %s\n", sanitizeMermaidID(ref), id)
		}

		if s.Put != "" {
			arrow := fmt.Sprintf("-- \"%s\" -->", escape(s.Put))
			if cond := condition(s); cond != "" {
				arrow = fmt.Sprintf("-- \"%s if not %s\" -->", escape(s.Put), escape(cond))
			}
			fmt.Fprintf(sb, "    %s %s sink\n", id, arrow)
		}
	}
}

func condition(s spec.Step) string {
	switch {
	case s.SkipIf != "" && s.StopIf != "":
		return s.StopIf + " or " + s.SkipIf
	case s.StopIf != "":
		return s.StopIf
	}
	return s.SkipIf
}

func stepSource(s spec.Step) string {
	switch {
	case s.Self:
		return "self"
	case s.Index:
		return "index"
	case s.Static != nil:
		return fmt.Sprintf("static %v", s.Static)
	case s.Take != nil:
		return fmt.Sprintf("take %v", s.Take)
	}
	return "static nil"
}

func opNames(ops []spec.Op) []string {
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.Name)
	}
	return names
}

// references lists the lookups and named pipelines the ops use, as node ids.
func references(ops []spec.Op) []string {
	var refs []string
	for _, op := range ops {
		switch op.Name {
		case "lookup":
			switch a := op.Args.(type) {
			case string:
				refs = append(refs, "lookup_"+a)
			case map[string]any:
				if name, ok := a["table"].(string); ok {
					refs = append(refs, "lookup_"+name)
				}
			}
		case "apply":
			switch a := op.Args.(type) {
			case string:
				refs = append(refs, "pipeline_"+a)
			case []any:
				for _, v := range a {
					if name, ok := v.(string); ok {
						refs = append(refs, "pipeline_"+name)
					}
				}
			}
		}
	}
	return refs
}

// describe names an endpoint by its type and its most telling setting.
func describe(ep spec.Endpoint) string {
	typ := ep.Type()
	if typ == "" {
		return "none"
	}
	for _, key := range []string{"path", "table", "query", "dir", "bucket", "match", "prefix"} {
		if v, ok := ep[key]; ok && v != "" {
			return fmt.Sprintf("%s: %v", typ, v)
		}
	}
	return typ
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
