package sluice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/sluice/internal/runtime"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/endpoint"
	"github.com/aretw0/sluice/pkg/observability"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
	"github.com/aretw0/sluice/pkg/spec"
)

// Summary reports what a migration did.
type Summary = runtime.Summary

// DefaultLockTTL bounds how long an abandoned migration lock survives its holder.
const DefaultLockTTL = 10 * time.Minute

// Engine is the high-level entry point for the Sluice library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	lookups *registry.Registry
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	locker  ports.Locker
	lockTTL time.Duration
	ops     []spec.CompileOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLookups sets the registry named lookups resolve against. Run adds the tables of
// each migration to it.
func WithLookups(r *registry.Registry) Option {
	return func(e *Engine) {
		e.lookups = r
	}
}

// WithLifecycleHooks registers observability hooks. Repeated options are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithMetrics records every migration into m.
func WithMetrics(m *observability.Metrics) Option {
	return WithLifecycleHooks(m.Hooks())
}

// WithLocker guards Run against concurrent runs of the same named migration.
// A zero ttl means DefaultLockTTL.
func WithLocker(l ports.Locker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithOp registers an extra op for the migrations compiled by Run.
func WithOp(name string, fn spec.OpFunc) Option {
	return func(e *Engine) {
		e.ops = append(e.ops, spec.WithOp(name, fn))
	}
}

// New initializes a new Sluice Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.lookups == nil {
		e.lookups = registry.NewRegistry()
	}
	if e.lockTTL <= 0 {
		e.lockTTL = DefaultLockTTL
	}
	return e
}

// Lookups returns the registry named lookups resolve against.
func (e *Engine) Lookups() *registry.Registry {
	return e.lookups
}

func (e *Engine) runtime(logger *slog.Logger) *runtime.Engine {
	return runtime.NewEngine(
		runtime.WithLookups(e.lookups),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(logger),
	)
}

// Migrate runs p once per record of src, appending the results to sink.
func (e *Engine) Migrate(ctx context.Context, src ports.Source, sink ports.Sink, p pipeline.Pipeline) (Summary, error) {
	return e.runtime(e.logger).Migrate(ctx, src, sink, p)
}

// Compile validates m and compiles it with the adapter ops and the ops registered on e.
// Connections opened by live lookup ops are closed again before Compile returns.
func (e *Engine) Compile(m *spec.Migration) (*spec.Compiled, error) {
	set := endpoint.New(m.Dir, endpoint.WithLogger(e.logger))
	defer set.Close()
	return spec.Compile(m, append(set.Ops(), e.ops...)...)
}

// Run opens the endpoints of a declarative migration, compiles it and migrates.
// Endpoints are closed before Run returns.
func (e *Engine) Run(ctx context.Context, m *spec.Migration) (sum Summary, err error) {
	logger := e.logger
	if m.Name != "" {
		logger = logger.With("migration", m.Name)
	}

	set, err := endpoint.Open(ctx, m, endpoint.WithLogger(logger))
	if err != nil {
		return sum, err
	}
	defer func() {
		if cerr := set.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close endpoints: %w", cerr)
		}
	}()

	compiled, err := spec.Compile(m, append(set.Ops(), e.ops...)...)
	if err != nil {
		return sum, err
	}
	compiled.Register(e.lookups)
	set.Register(e.lookups)

	if e.locker != nil && m.Name != "" {
		unlock, err := e.locker.Lock(ctx, m.Name, e.lockTTL)
		if err != nil {
			return sum, fmt.Errorf("lock migration %s: %w", m.Name, err)
		}
		defer func() {
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
				logger.Warn("Failed to release migration lock", "err", uerr)
			}
		}()
	}

	logger.Info("Migration started")
	start := time.Now()
	sum, err = e.runtime(logger).Migrate(ctx, set.Source, set.Sink, compiled.Pipeline)
	if err != nil {
		return sum, err
	}
	logger.Info("Migration finished",
		"read", sum.Read, "emitted", sum.Emitted, "skipped", sum.Skipped,
		"stopped", sum.Stopped, "elapsed", time.Since(start))
	return sum, nil
}
