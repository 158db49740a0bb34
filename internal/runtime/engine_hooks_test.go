package runtime_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/sluice/internal/runtime"
	"github.com/aretw0/sluice/pkg/adapters/memory"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	var entered []any
	var outcomes []domain.Outcome
	var flushed int

	hooks := domain.LifecycleHooks{
		OnRecordEnter: func(ctx context.Context, e *domain.RecordEvent) {
			entered = append(entered, e.Index)
		},
		OnRecordLeave: func(ctx context.Context, e *domain.RecordEvent) {
			outcomes = append(outcomes, e.Outcome)
		},
		OnFlush: func(ctx context.Context, e *domain.FlushEvent) {
			flushed++
		},
	}

	engine := runtime.NewEngine(runtime.WithLifecycleHooks(hooks))
	_, err := engine.Migrate(context.Background(), tenRecords(), memory.NewSink(), func(rc pipeline.Context) error {
		x := rc.Take("a").Put("a")
		switch x.Value() {
		case 2:
			return rc.Skip()
		case 3:
			return rc.Stop()
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []any{0, 1, 2}, entered)
	assert.Equal(t, []domain.Outcome{domain.OutcomeDone, domain.OutcomeSkipped, domain.OutcomeStopped}, outcomes)
	assert.Equal(t, 1, flushed)
}

func TestEngine_LookupsAndLogger(t *testing.T) {
	var buf bytes.Buffer
	lookups := registry.NewRegistry()
	lookups.Register("parity", registry.Map(map[int]string{1: "odd", 2: "even"}))

	engine := runtime.NewEngine(
		runtime.WithLookups(lookups),
		runtime.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	sink := memory.NewSink()
	src := memory.Records(map[string]any{"n": 1}, map[string]any{"n": 2}, map[string]any{"n": 3})

	_, err := engine.Migrate(context.Background(), src, sink, func(rc pipeline.Context) error {
		rc.Take("n").LookupNamed("parity").Put("parity")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{{"parity": "odd"}, {"parity": "even"}, {"parity": nil}}, sink.Rows())
	assert.Contains(t, buf.String(), "value not found in lookup")
	assert.Contains(t, buf.String(), "index=2")
}
