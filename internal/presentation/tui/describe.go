package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/sluice/pkg/spec"
)

// Describe renders a migration as a markdown overview.
func Describe(m *spec.Migration) string {
	var sb strings.Builder
	name := m.Name
	if name == "" {
		name = "Migration"
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)

	sb.WriteString("| Endpoint | Type | Settings |\n|---|---|---|\n")
	endpointRow(&sb, "source", m.Source)
	endpointRow(&sb, "sink", m.Sink)
	for _, n := range slices.Sorted(maps.Keys(m.LookupSources)) {
		endpointRow(&sb, "lookup "+n, m.LookupSources[n])
	}

	if len(m.Lookups) > 0 {
		sb.WriteString("\n## Lookups\n\n")
		for _, n := range slices.Sorted(maps.Keys(m.Lookups)) {
			fmt.Fprintf(&sb, "- `%s`: %d entries\n", n, len(m.Lookups[n]))
		}
	}
	if len(m.Pipelines) > 0 {
		sb.WriteString("\n## Pipelines\n\n")
		for _, n := range slices.Sorted(maps.Keys(m.Pipelines)) {
			fmt.Fprintf(&sb, "- `%s`: %s\n", n, ops(m.Pipelines[n]))
		}
	}

	sb.WriteString("\n## Fields\n\n| # | From | Ops | Put |\n|---|---|---|---|\n")
	for i, s := range m.Fields {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s |\n", i+1, from(s), ops(s.Ops), put(s))
	}
	return sb.String()
}

func endpointRow(sb *strings.Builder, role string, ep spec.Endpoint) {
	var settings []string
	for _, k := range slices.Sorted(maps.Keys(ep)) {
		switch k {
		case "type", "password", "dsn":
			continue
		}
		settings = append(settings, fmt.Sprintf("%s=%v", k, ep[k]))
	}
	fmt.Fprintf(sb, "| %s | %s | %s |\n", role, ep.Type(), strings.Join(settings, " "))
}

func from(s spec.Step) string {
	switch {
	case s.Flush != nil:
		return "flush"
	case s.Reset:
		return "reset"
	case s.Self:
		return "self"
	case s.Index:
		return "index"
	case s.Static != nil:
		return fmt.Sprintf("static `%v`", s.Static)
	}
	return fmt.Sprintf("`%v`", s.Take)
}

func ops(list []spec.Op) string {
	names := make([]string, 0, len(list))
	for _, op := range list {
		names = append(names, op.Name)
	}
	return strings.Join(names, " → ")
}

func put(s spec.Step) string {
	out := s.Put
	if s.StopIf != "" {
		out += fmt.Sprintf(" (stop if `%s`)", s.StopIf)
	}
	if s.SkipIf != "" {
		out += fmt.Sprintf(" (skip if `%s`)", s.SkipIf)
	}
	return strings.TrimSpace(out)
}
