package sluice_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/pkg/adapters/jsonl"
	"github.com/aretw0/sluice/pkg/adapters/memory"
	redisadapter "github.com/aretw0/sluice/pkg/adapters/redis"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/observability"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/spec"
)

const migration = `
name: people
source: {type: json, path: people.json}
sink: {type: jsonl, path: out.jsonl}
lookups:
  sex: {F: f, M: m}
fields:
  - take: id
    ops: [parse_int, {format_string: "_legacy_user_%d"}]
    put: username
  - take: sex
    ops: [{lookup: sex}]
    put: sex
    skip_if: value == null
`

func setup(t *testing.T) *spec.Migration {
	t.Helper()
	dir := t.TempDir()
	people := `{"id": "7", "sex": "F"}
{"id": "8", "sex": null}
{"id": "9", "sex": "M"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.json"), []byte(people), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "migration.yaml"), []byte(migration), 0o644))
	m, err := spec.Load(filepath.Join(dir, "migration.yaml"))
	require.NoError(t, err)
	return m
}

func readJSONL(t *testing.T, path string) []any {
	t.Helper()
	var out []any
	require.NoError(t, jsonl.File(path).EachIndexed(context.Background(), func(_ int, rec any) error {
		out = append(out, rec)
		return nil
	}))
	return out
}

func TestEngine_Migrate(t *testing.T) {
	var mu sync.Mutex
	var outcomes []domain.Outcome
	eng := sluice.New(sluice.WithLifecycleHooks(domain.LifecycleHooks{
		OnRecordLeave: func(_ context.Context, e *domain.RecordEvent) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, e.Outcome)
		},
	}))

	sink := memory.NewSink()
	sum, err := eng.Migrate(context.Background(), memory.Records("a", "", "c"), sink, func(rc pipeline.Context) error {
		it := rc.Static(rc.Data())
		if it.Value() == "" {
			return rc.Skip()
		}
		it.Put("letter")
		rc.Index().Put("at")
		return rc.Err()
	})
	require.NoError(t, err)

	assert.Equal(t, sluice.Summary{Read: 3, Emitted: 2, Skipped: 1}, sum)
	assert.Equal(t, []map[string]any{{"letter": "a", "at": 0}, {"letter": "c", "at": 2}}, sink.Rows())
	assert.Equal(t, []domain.Outcome{domain.OutcomeDone, domain.OutcomeSkipped, domain.OutcomeDone}, outcomes)
}

func TestEngine_Run(t *testing.T) {
	m := setup(t)
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	eng := sluice.New(sluice.WithMetrics(metrics))
	sum, err := eng.Run(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, sluice.Summary{Read: 3, Emitted: 2, Skipped: 1}, sum)
	assert.Equal(t, []any{
		map[string]any{"username": "_legacy_user_7", "sex": "f"},
		map[string]any{"username": "_legacy_user_9", "sex": "m"},
	}, readJSONL(t, filepath.Join(m.Dir, "out.jsonl")))

	textfile := filepath.Join(t.TempDir(), "sluice.prom")
	require.NoError(t, metrics.WriteTextfile(textfile))
	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sluice_records_total{outcome="done"} 2`)

	_, err = eng.Lookups().Get("sex")
	assert.NoError(t, err)
}

func TestEngine_Compile(t *testing.T) {
	m := setup(t)
	eng := sluice.New(sluice.WithOp("shout", func(_ *spec.Compiler, _ any) (pipeline.ItemPipeline, error) {
		return func(it *pipeline.Item) error { return nil }, nil
	}))

	_, err := eng.Compile(m)
	require.NoError(t, err)

	m.Fields = append(m.Fields, spec.Step{Take: "id", Ops: []spec.Op{{Name: "shout"}, {Name: "whisper"}}})
	_, err = eng.Compile(m)
	assert.ErrorIs(t, err, spec.ErrUnknownOp)
}

func TestEngine_RunFailsOnBadMigration(t *testing.T) {
	m := setup(t)
	m.Fields[0].Ops = append(m.Fields[0].Ops, spec.Op{Name: "nope"})

	_, err := sluice.New().Run(context.Background(), m)
	assert.ErrorIs(t, err, spec.ErrUnknownOp)

	m = setup(t)
	m.Source = spec.Endpoint{"type": "gopher"}
	_, err = sluice.New().Run(context.Background(), m)
	assert.Error(t, err)
}

func TestEngine_RunLocked(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()
	locker := redisadapter.NewLocker(client, "sluice:")

	m := setup(t)
	eng := sluice.New(sluice.WithLocker(locker, time.Minute))
	_, err = eng.Run(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, mr.Exists("sluice:lock:people"), "lock must be released")

	unlock, err := locker.Lock(context.Background(), "people", time.Minute)
	require.NoError(t, err)
	defer unlock(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = eng.Run(ctx, setup(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
