package endpoint_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/internal/runtime"
	"github.com/aretw0/sluice/pkg/adapters/jsonl"
	sqladapter "github.com/aretw0/sluice/pkg/adapters/sql"
	"github.com/aretw0/sluice/pkg/endpoint"
	"github.com/aretw0/sluice/pkg/persistence/middleware"
	"github.com/aretw0/sluice/pkg/registry"
	"github.com/aretw0/sluice/pkg/spec"
)

// write creates the named files in a fresh directory and returns it.
func write(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// migrate loads dir/migration.yaml, opens its endpoints and runs it.
func migrate(t *testing.T, dir string) runtime.Summary {
	t.Helper()
	ctx := context.Background()
	m, err := spec.Load(filepath.Join(dir, "migration.yaml"))
	require.NoError(t, err)

	set, err := endpoint.Open(ctx, m)
	require.NoError(t, err)
	defer func() { require.NoError(t, set.Close()) }()

	compiled, err := spec.Compile(m, set.Ops()...)
	require.NoError(t, err)
	reg := registry.NewRegistry()
	compiled.Register(reg)
	set.Register(reg)

	sum, err := runtime.NewEngine(runtime.WithLookups(reg)).Migrate(ctx, set.Source, set.Sink, compiled.Pipeline)
	require.NoError(t, err)
	return sum
}

func TestOpen_CSVToSQLite(t *testing.T) {
	dir := write(t, map[string]string{
		"people.csv": "id,name,sex,type_id,notes\n1,Wesley,M,4,farm boy\n2,Inigo,M,2,\n1,Wesley,M,4,pirate\n",
		"sexes.csv":  "code,label\nM,Male\nF,Female\n",
		"migration.yaml": `
name: people
source: {type: csv, path: people.csv}
sink:
  type: sqlite
  dsn: out.db
  table: people
  mode: upsert
  keys: [id]
  actions: {notes: append_line}
lookup_sources:
  sexes: {type: csv, path: sexes.csv, key: code, value: label}
fields:
  - take: id
    ops: [parse_int]
    put: id
  - take: name
    put: name
  - take: sex
    ops: [{lookup: sexes}]
    put: sex
  - take: type_id
    ops:
      - parse_int
      - db_lookup: {driver: sqlite, dsn: out.db, table: asset_type, key: id, value: label}
    put: asset
  - take: notes
    put: notes
`,
	})

	db, _, err := sqladapter.Open("sqlite", filepath.Join(dir, "out.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, sex TEXT, asset TEXT, notes TEXT)`,
		`CREATE TABLE asset_type (id INTEGER PRIMARY KEY, label TEXT)`,
		`INSERT INTO asset_type (id, label) VALUES (2, 'Wheelbarrow'), (4, 'True Love')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	sum := migrate(t, dir)
	assert.Equal(t, runtime.Summary{Read: 3, Emitted: 3}, sum)

	rows, err := db.Query(`SELECT id, name, sex, asset, notes FROM people ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	type person struct {
		ID                       int64
		Name, Sex, Asset, Notes string
	}
	var got []person
	for rows.Next() {
		var p person
		require.NoError(t, rows.Scan(&p.ID, &p.Name, &p.Sex, &p.Asset, &p.Notes))
		got = append(got, p)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []person{
		{1, "Wesley", "Male", "True Love", "farm boy\npirate"},
		{2, "Inigo", "Male", "Wheelbarrow", ""},
	}, got)
}

func TestOpen_XMLToJSONL(t *testing.T) {
	dir := write(t, map[string]string{
		"catalog.xml": `<catalog>
  <product id="KB-100"><name>Keyboard &amp; Co</name><price>49.90</price></product>
  <product id="MS-200"><name>Mouse</name><price>19.50</price></product>
</catalog>`,
		"migration.yaml": `
source: {type: xml, path: catalog.xml, select: product}
sink: {type: jsonl, path: out.jsonl}
fields:
  - take: id
    put: sku
  - self: true
    ops: [{at_css: name}, content, {encode_html: {nl2br: true}}]
    put: name
  - self: true
    ops: [{at_css: price}, content, parse_float]
    put: price
  - self: true
    ops: [node_name]
    put: kind
`,
	})

	sum := migrate(t, dir)
	assert.Equal(t, 2, sum.Emitted)

	got := readJSONL(t, filepath.Join(dir, "out.jsonl"))
	assert.Equal(t, []any{
		map[string]any{"sku": "KB-100", "name": "Keyboard &amp; Co", "price": 49.9, "kind": "product"},
		map[string]any{"sku": "MS-200", "name": "Mouse", "price": 19.5, "kind": "product"},
	}, got)
}

func TestOpen_JSONToRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()
	mr.HSet("sexes", "M", "Male", "F", "Female")
	require.NoError(t, mr.Set("user:7", "wesley"))

	dir := write(t, map[string]string{
		"people.json": `[{"id": 1, "sex": "F", "uid": 7}, {"id": 2, "sex": "X", "uid": 8}]`,
		"migration.yaml": `
source: {type: json, path: people.json}
sink: {type: redis, addr: "` + mr.Addr() + `", prefix: "people:", hash: true}
lookup_sources:
  sexes: {type: redis, addr: "` + mr.Addr() + `", key: sexes}
fields:
  - take: id
    ops: [{format_string: "%v"}]
    put: id
  - take: sex
    ops: [{lookup: {table: sexes, pass_if_not_found: true}}]
    put: sex
  - take: uid
    ops:
      - redis_lookup: {addr: "` + mr.Addr() + `", prefix: "user:", warn: false}
    put: user
`,
	})

	migrate(t, dir)
	assert.Equal(t, "Female", mr.HGet("people:1", "sex"))
	assert.Equal(t, "wesley", mr.HGet("people:1", "user"))
	assert.Equal(t, "X", mr.HGet("people:2", "sex"))
	assert.Equal(t, "", mr.HGet("people:2", "user"))
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"unknown source":   "source: {type: ftp}\nsink: {type: jsonl}\nfields: [{take: a}]",
		"unknown sink":     "source: {type: csv, path: a.csv}\nsink: {type: kafka}\nfields: [{take: a}]",
		"sql no driver":    "source: {type: sql, query: 'SELECT 1'}\nsink: {type: jsonl}\nfields: [{take: a}]",
		"bad comma":        "source: {type: csv, path: a.csv, comma: ';;'}\nsink: {type: jsonl}\nfields: [{take: a}]",
		"xml no select":    "source: {type: xml, path: a.xml}\nsink: {type: jsonl}\nfields: [{take: a}]",
		"bad column kind":  "source: {type: microfocus, path: a.dat, layout: [{name: a, kind: packed}]}\nsink: {type: jsonl}\nfields: [{take: a}]",
		"lookup no column": "source: {type: csv, path: a.csv}\nsink: {type: jsonl, path: out.jsonl}\nlookup_sources: {t: {type: csv, path: a.csv}}\nfields: [{take: a}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			m, err := spec.Parse([]byte(doc), "yaml")
			require.NoError(t, err)
			m.Dir = t.TempDir()
			_, err = endpoint.Open(ctx, m)
			assert.Error(t, err)
		})
	}

	m, err := spec.Parse([]byte("source: {type: ftp}\nsink: {type: jsonl}\nfields: [{take: a}]"), "yaml")
	require.NoError(t, err)
	_, err = endpoint.Open(ctx, m)
	assert.ErrorIs(t, err, endpoint.ErrUnknownType)
}

func TestOps_Compile(t *testing.T) {
	m, err := spec.Parse([]byte(`
fields:
  - take: page
    ops:
      - parse_html:
          - self: true
            ops: [{css: "p"}]
            put: paragraphs
  - take: dat
    ops:
      - parse_microfocus:
          include_header: true
          skip_deleted: true
          layout:
            - {name: code, offset: 0, length: 4}
            - {name: qty, offset: 4, length: 2, kind: uint}
  - take: text
    ops: [decode_html, {encode_html: {nl2br: true}}]
    put: text
`), "yaml")
	require.NoError(t, err)
	set := endpoint.New(t.TempDir())
	require.NoError(t, m.Validate(set.Ops()...))

	bad, err := spec.Parse([]byte(`
fields:
  - take: a
    ops: [{css: ""}, {content: x}, {parse_microfocus: {layout: [{name: a, kind: packed}]}}, {redis_lookup: {addr: x}}]
`), "yaml")
	require.NoError(t, err)
	assert.Len(t, spec.ValidationErrors(bad.Validate(set.Ops()...)), 4)
}

func TestOpen_SinkProtection(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	t.Setenv("SLUICE_TEST_KEY", base64.StdEncoding.EncodeToString(key))

	dir := write(t, map[string]string{
		"people.json": `{"name": "Wesley", "password": "as you wish", "card": "4111"}`,
		"migration.yaml": `
source: {type: json, path: people.json}
sink:
  type: jsonl
  path: out.jsonl
  mask: [password]
  encrypt: {key_env: SLUICE_TEST_KEY, fields: [card]}
fields:
  - self: true
    ops: [{extract: name}]
    put: name
  - take: password
    put: password
  - take: card
    put: card
`,
	})
	migrate(t, dir)

	rows := readJSONL(t, filepath.Join(dir, "out.jsonl"))
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "Wesley", row["name"])
	assert.Equal(t, middleware.Mask, row["password"])
	card, err := middleware.Decrypt(middleware.EncryptionConfig{ActiveKey: key}, row["card"].(string))
	require.NoError(t, err)
	assert.Equal(t, "4111", card)

	m, err := spec.Parse([]byte("source: {type: json, path: a.json}\nsink: {type: jsonl, path: out.jsonl, encrypt: {key_env: SLUICE_UNSET_KEY, fields: [a]}}\nfields: [{take: a}]"), "yaml")
	require.NoError(t, err)
	m.Dir = t.TempDir()
	_, err = endpoint.Open(context.Background(), m)
	assert.ErrorContains(t, err, "SLUICE_UNSET_KEY")
}

func TestOpen_NestedJSONL(t *testing.T) {
	dir := write(t, map[string]string{
		"people.json": `[{"name": "Wesley", "email": "w@farm.example", "tags": "farm,boy"}]`,
		"migration.yaml": `
source: {type: json, path: people.json}
sink: {type: jsonl, path: out.jsonl, nested: true, mask: [email]}
fields:
  - take: name
    put: person.name
  - take: email
    put: person.email
  - take: tags
    ops: [{split: ","}]
    put: person.tags
`,
	})
	migrate(t, dir)

	assert.Equal(t, []any{
		map[string]any{"person": map[string]any{
			"name":  "Wesley",
			"email": middleware.Mask,
			"tags":  []any{"farm", "boy"},
		}},
	}, readJSONL(t, filepath.Join(dir, "out.jsonl")))
}

func readJSONL(t *testing.T, path string) []any {
	t.Helper()
	var got []any
	require.NoError(t, jsonl.File(path).EachIndexed(context.Background(), func(_ int, rec any) error {
		got = append(got, rec)
		return nil
	}))
	return got
}
