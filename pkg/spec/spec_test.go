package spec_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/internal/runtime"
	"github.com/aretw0/sluice/pkg/adapters/memory"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/registry"
	"github.com/aretw0/sluice/pkg/spec"
)

// run compiles doc and migrates records through it.
func run(t *testing.T, doc string, records ...any) ([]map[string]any, runtime.Summary, error) {
	t.Helper()
	m, err := spec.Parse([]byte(doc), "yaml")
	require.NoError(t, err)
	compiled, err := spec.Compile(m)
	require.NoError(t, err)

	reg := registry.NewRegistry()
	compiled.Register(reg)
	sink := memory.NewSink()
	sum, err := runtime.NewEngine(runtime.WithLookups(reg)).
		Migrate(context.Background(), memory.Records(records...), sink, compiled.Pipeline)
	return sink.Rows(), sum, err
}

var people = []any{
	map[string]any{"User Id": "7", "Sex": "Female", "Phone": "(555) 010-0100", "Born": "1990-05-01"},
	map[string]any{"User Id": "8", "Sex": "Male", "Phone": "", "Born": "1985-01-31"},
	map[string]any{"User Id": "9", "Sex": "Unknown", "Phone": "555.0199", "Born": nil},
}

func TestLoad_YAMLAndJSON(t *testing.T) {
	for _, name := range []string{"people.yaml", "people.json"} {
		t.Run(name, func(t *testing.T) {
			m, err := spec.Load(filepath.Join("testdata", name))
			require.NoError(t, err)

			assert.Equal(t, "people", m.Name)
			assert.Equal(t, "testdata", m.Dir)
			assert.Equal(t, "csv", m.Source.Type())
			assert.Equal(t, "jsonl", m.Sink.Type())
			require.Len(t, m.Fields, 5)
			assert.Equal(t, "User Id", m.Fields[0].Take)
			assert.Equal(t, []spec.Op{{Name: "parse_int"}, {Name: "format_string", Args: "_legacy_user_%d"}}, m.Fields[0].Ops)
			assert.Equal(t, "Other", m.Fields[4].Static)

			var src struct {
				Type string `mapstructure:"type"`
				Path string `mapstructure:"path"`
			}
			require.NoError(t, m.Source.Decode(&src))
			assert.Equal(t, "people.csv", src.Path)

			compiled, err := spec.Compile(m)
			require.NoError(t, err)
			reg := registry.NewRegistry()
			compiled.Register(reg)
			sink := memory.NewSink()
			sum, err := runtime.NewEngine(runtime.WithLookups(reg)).
				Migrate(context.Background(), memory.Records(people...), sink, compiled.Pipeline)
			require.NoError(t, err)

			assert.Equal(t, runtime.Summary{Read: 3, Emitted: 2, Skipped: 1}, sum)
			assert.Equal(t, []map[string]any{
				{"username": "_legacy_user_7", "sex": "f", "search": "5550100100", "born": "01/05/1990", "type": "Other"},
				{"username": "_legacy_user_9", "sex": "Unknown", "search": "5550199", "born": nil, "type": "Other"},
			}, sink.Rows())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := spec.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "fields: [{take: a, colour: red}]",
		"two-key op":      "fields: [{take: a, ops: [{trim: null, compact: null}]}]",
		"step not a map":  "fields: [take]",
		"invalid yaml":    "fields: [",
		"unknown section": "targets: {}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := spec.Parse([]byte(doc), "yaml")
			assert.Error(t, err)
		})
	}

	_, err := spec.Parse([]byte("{}"), "toml")
	assert.Error(t, err)
}

func TestCompile_ValidationErrors(t *testing.T) {
	m, err := spec.Parse([]byte(`
pipelines:
  loop: [{apply: loop}]
fields:
  - take: a
    ops: [frobnicate]
  - take: b
    static: c
  - take: d
    skip_if: 'value +'
  - take: e
    ops: [{apply: missing}]
  - flush: {}
    put: x
  - take: f
    ops: [{replace: {new: y}}]
`), "yaml")
	require.NoError(t, err)

	err = m.Validate()
	require.Error(t, err)
	errs := spec.ValidationErrors(err)
	assert.Len(t, errs, 7)
	assert.ErrorIs(t, err, spec.ErrUnknownOp)
	assert.ErrorIs(t, err, spec.ErrUnknownPipeline)

	var ve *spec.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.NotEmpty(t, ve.Path)
}

func TestCompile_NoFields(t *testing.T) {
	m, err := spec.Parse([]byte(`name: empty`), "yaml")
	require.NoError(t, err)
	assert.Error(t, m.Validate())
}

func TestCompile_FlushAndReset(t *testing.T) {
	rows, sum, err := run(t, `
fields:
  - take: a
    put: x
  - flush: {}
  - take: b
    put: y
  - flush: {reset: false}
  - take: c
    put: z
`, map[string]any{"a": 1, "b": 2, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Emitted)
	assert.Equal(t, []map[string]any{
		{"x": 1},
		{"y": 2},
		{"y": 2, "z": 3},
	}, rows)
}

func TestCompile_ResetStep(t *testing.T) {
	rows, _, err := run(t, `
fields:
  - take: a
    put: x
  - reset: true
  - index: true
    put: i
`, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"i": 0}}, rows)
}

func TestCompile_NestedFields(t *testing.T) {
	rows, _, err := run(t, `
fields:
  - take: doc
    ops:
      - parse_json:
          - take: name
            put: name
          - take: tags
            ops: [{split: ","}]
            put: tags
  - take: contact
    ops:
      - match:
          pattern: '(?<user>[^@]+)@(?<host>.+)'
          fields:
            - take: host
              put: host
  - take: attrs
    ops:
      - split_kv:
          kv: "="
          item: ";"
          fields:
            - take: color
              put: color
`, map[string]any{
		"doc":     `{"name": "Ana", "tags": "a,b"}`,
		"contact": "ana@example.com",
		"attrs":   "size=L;color=red",
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{
		"name":  "Ana",
		"tags":  []any{"a", "b"},
		"host":  "example.com",
		"color": "red",
	}}, rows)
}

func TestCompile_Each(t *testing.T) {
	rows, sum, err := run(t, `
fields:
  - take: order
    put: order
  - take: items
    ops:
      - each:
          flush: true
          fields:
            - take: sku
              put: sku
`, map[string]any{
		"order": 1,
		"items": []any{map[string]any{"sku": "a"}, map[string]any{"sku": "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Emitted)
	assert.Equal(t, []map[string]any{
		{"order": 1, "sku": "a"},
		{"order": 1, "sku": "b"},
	}, rows)
}

func TestCompile_StopIf(t *testing.T) {
	rows, sum, err := run(t, `
fields:
  - take: n
    stop_if: 'value > 1'
    put: n
`, map[string]any{"n": int64(1)}, map[string]any{"n": int64(2)}, map[string]any{"n": int64(3)})
	require.NoError(t, err)
	assert.True(t, sum.Stopped)
	assert.Equal(t, 2, sum.Read)
	assert.Equal(t, []map[string]any{{"n": int64(1)}}, rows)
}

func TestCompile_SkipIfOnIndex(t *testing.T) {
	rows, _, err := run(t, `
fields:
  - take: n
    skip_if: 'index == 0'
    put: n
`, map[string]any{"n": "first"}, map[string]any{"n": "second"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"n": "second"}}, rows)
}

func TestCompile_ConditionNotBool(t *testing.T) {
	_, _, err := run(t, `
fields:
  - take: n
    skip_if: 'value'
    put: n
`, map[string]any{"n": "text"})
	require.Error(t, err)
}

func TestCompile_ListOps(t *testing.T) {
	rows, _, err := run(t, `
fields:
  - take: tags
    ops:
      - filter: 'value != ""'
      - map: [{format_string: "#%s"}]
      - join: " "
    put: tags
  - take: maybe
    ops: [compact, coalesce]
    put: first
  - take: nested
    ops: [{extract: inner}, {default: none}]
    put: inner
`, map[string]any{
		"tags":   []any{"a", "", "b"},
		"maybe":  []any{nil, "x", "y"},
		"nested": map[string]any{"other": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"tags": "#a #b", "first": "x", "inner": "none"}}, rows)
}

func TestCompile_BoolAndDates(t *testing.T) {
	rows, _, err := run(t, `
fields:
  - take: active
    ops: [parse_bool, format_bool]
    put: active
  - take: flag
    ops: [{parse_bool: {true: ["Y"], false: ["N"]}}, {format_bool: [1, 0]}]
    put: flag
  - take: seen
    ops:
      - parse_datetime: {layout: "2006-01-02 15:04:05", zero_date: true}
      - format_date
    put: seen
  - take: hex
    ops: [{parse_int: 16}]
    put: hex
`, map[string]any{"active": "yes", "flag": "N", "seen": "0000-00-00 00:00:00", "hex": "ff"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"active": "Yes", "flag": 0, "seen": nil, "hex": int64(255)}}, rows)
}

func TestCompile_LookupFromRegistry(t *testing.T) {
	m, err := spec.Parse([]byte(`
fields:
  - take: country
    ops:
      - lookup: {table: countries, fallback: [{format_string: "?%s"}]}
    put: country
`), "yaml")
	require.NoError(t, err)
	compiled, err := spec.Compile(m)
	require.NoError(t, err)

	reg := registry.NewRegistry()
	reg.Register("countries", registry.Map(map[string]string{"Brazil": "BR"}))
	sink := memory.NewSink()
	_, err = runtime.NewEngine(runtime.WithLookups(reg)).Migrate(context.Background(),
		memory.Records(map[string]any{"country": "Brazil"}, map[string]any{"country": "Narnia"}),
		sink, compiled.Pipeline)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"country": "BR"}, {"country": "?Narnia"}}, sink.Rows())
}

func TestCompile_NonStringKeys(t *testing.T) {
	var rows []map[string]any
	var err error
	require.NotPanics(t, func() {
		rows, _, err = run(t, `
lookups:
  codes: {1: one, 2: two}
fields:
  - take: code
    ops: [{lookup: codes}]
    put: code
  - take: flag
    ops: [{parse_bool: {true: ["1"], false: ["0"]}}]
    put: flag
`, map[string]any{"code": "2", "flag": "1"})
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"code": "two", "flag": true}}, rows)
}

func TestCompile_LookupFallbackByName(t *testing.T) {
	rows, _, err := run(t, `
lookups:
  countries: {Brazil: BR}
fields:
  - take: country
    ops:
      - lookup: {table: countries, fallback: [trim, {format_string: "?%s"}]}
    put: country
`, map[string]any{"country": " Narnia "}, map[string]any{"country": "Brazil"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"country": "?Narnia"}, {"country": "BR"}}, rows)
}

func TestCompile_BuiltInGo(t *testing.T) {
	compiled, err := spec.Compile(&spec.Migration{Fields: []spec.Step{
		{Take: "id", Put: "id"},
		{Static: "v1", Put: "version"},
	}})
	require.NoError(t, err)

	sink := memory.NewSink()
	_, err = runtime.NewEngine().Migrate(context.Background(),
		memory.Records(map[string]any{"id": 7}), sink, compiled.Pipeline)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": 7, "version": "v1"}}, sink.Rows())
}

func TestCompile_UUID(t *testing.T) {
	rows, _, err := run(t, `
fields:
  - take: id
    ops: [uuid]
    put: id
`, map[string]any{"id": nil}, map[string]any{"id": "kept"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0]["id"], 36)
	assert.Equal(t, "kept", rows[1]["id"])
}

func TestCompile_WithOp(t *testing.T) {
	upper := func(c *spec.Compiler, args any) (pipeline.ItemPipeline, error) {
		var suffix string
		if err := c.Decode(args, &suffix); err != nil {
			return nil, err
		}
		return func(it *pipeline.Item) error {
			it.Update(it.Value().(string) + suffix)
			return nil
		}, nil
	}
	m, err := spec.Parse([]byte(`
fields:
  - take: a
    ops: [{shout: "!"}]
    put: a
`), "yaml")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Validate(), spec.ErrUnknownOp)

	compiled, err := spec.Compile(m, spec.WithOp("shout", upper))
	require.NoError(t, err)
	sink := memory.NewSink()
	_, err = runtime.NewEngine().Migrate(context.Background(),
		memory.Records(map[string]any{"a": "hey"}), sink, compiled.Pipeline)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"a": "hey!"}}, sink.Rows())
}

func TestCondition(t *testing.T) {
	env, err := spec.NewEnv()
	require.NoError(t, err)

	cond, err := spec.CompileCondition(env, `size(value) > 2 && index % 2 == 0`)
	require.NoError(t, err)
	assert.Equal(t, `size(value) > 2 && index % 2 == 0`, cond.String())
	ok, err := cond.Eval([]any{1, 2, 3}, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cond.Eval([]any{1}, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = spec.CompileCondition(env, `"text"`)
	assert.Error(t, err)
}

func TestCompile_Self(t *testing.T) {
	rows, _, err := run(t, `
fields:
  - self: true
    ops: [{extract: a}, {format_string: "a=%v"}]
    put: a
`, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"a": "a=1"}}, rows)
}
