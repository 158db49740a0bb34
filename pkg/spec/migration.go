package spec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Migration is a decoded migration file.
type Migration struct {
	Name string `mapstructure:"name"`
	// Source and Sink describe the endpoints; "type" selects the adapter.
	Source Endpoint `mapstructure:"source"`
	Sink   Endpoint `mapstructure:"sink"`
	// Lookups are inline tables, addressed by name from lookup ops.
	Lookups map[string]map[string]any `mapstructure:"lookups"`
	// LookupSources are tables loaded from external stores before the migration runs.
	LookupSources map[string]Endpoint `mapstructure:"lookup_sources"`
	// Pipelines are named op lists, applied with the apply op.
	Pipelines map[string][]Op `mapstructure:"pipelines"`
	Fields    []Step          `mapstructure:"fields"`

	// Dir is the directory of the file the migration was loaded from.
	// Relative paths in endpoints resolve against it.
	Dir string `mapstructure:"-"`
}

// Endpoint is a loosely typed source, sink or lookup source block.
type Endpoint map[string]any

// Type returns the adapter name of the endpoint.
func (e Endpoint) Type() string {
	s, _ := e["type"].(string)
	return s
}

// Decode decodes the endpoint into a typed struct with mapstructure tags.
func (e Endpoint) Decode(out any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(e)); err != nil {
		return fmt.Errorf("decode %s endpoint: %w", e.Type(), err)
	}
	return nil
}

// Step is one entry of the fields list. Exactly one of Take, Static, Index, Self, Flush
// and Reset selects what the step does. Self reads the whole record (or sub-record) data.
type Step struct {
	Take   any        `mapstructure:"take"`
	Static any        `mapstructure:"static"`
	Index  bool       `mapstructure:"index"`
	Self   bool       `mapstructure:"self"`
	Ops    []Op       `mapstructure:"ops"`
	Put    string     `mapstructure:"put"`
	SkipIf string     `mapstructure:"skip_if"`
	StopIf string     `mapstructure:"stop_if"`
	Flush  *FlushStep `mapstructure:"flush"`
	Reset  bool       `mapstructure:"reset"`

	// Set when decoded from a file, where an explicit null is still a take or static.
	hasTake   bool
	hasStatic bool
}

func (s Step) takes() bool    { return s.hasTake || s.Take != nil }
func (s Step) isStatic() bool { return s.hasStatic || s.Static != nil }

// FlushStep flushes the collector. Reset defaults to true.
type FlushStep struct {
	Reset *bool `mapstructure:"reset"`
}

// Op is one item operation: a name and its arguments, written as a single-key mapping
// ({format_string: "%s"}) or as a bare name (trim).
type Op struct {
	Name string
	Args any
}

// Load reads a migration file. The format is chosen by extension: .json is JSON, anything
// else is YAML.
func Load(path string) (*Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}
	format := "yaml"
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = "json"
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes a migration document in the given format ("yaml" or "json").
func Parse(data []byte, format string) (*Migration, error) {
	var raw map[string]any
	switch format {
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse migration json: %w", err)
		}
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse migration yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown migration format %q", format)
	}

	var m Migration
	if err := decode(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
