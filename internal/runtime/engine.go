package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
)

// Engine is the migration driver.
// It is stateless between migrations and may be reused.
type Engine struct {
	lookups *registry.Registry
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger handed to every record context.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLookups sets the registry used by named lookups.
func WithLookups(lookups *registry.Registry) EngineOption {
	return func(e *Engine) {
		e.lookups = lookups
	}
}

// NewEngine creates a new driver.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		lookups: registry.NewRegistry(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summary reports what a migration did.
type Summary struct {
	Read    int  `json:"read"`
	Emitted int  `json:"emitted"`
	Skipped int  `json:"skipped"`
	Stopped bool `json:"stopped"`
}

// errStop ends source iteration after a stop signal.
var errStop = errors.New("migration stopped")

// Migrate runs p once per record of src and appends the results to sink.
// Records are processed one at a time, in source order. The first failure halts the
// migration and is returned as a *domain.RecordError (or *domain.SourceError when the
// source itself failed); rows flushed before it stay in the sink.
func (e *Engine) Migrate(ctx context.Context, src ports.Source, sink ports.Sink, p pipeline.Pipeline) (Summary, error) {
	var sum Summary
	opts := []pipeline.RecordOption{
		pipeline.WithLookups(e.lookups),
		pipeline.WithLogger(e.logger),
		pipeline.WithHooks(e.hooks),
	}

	visit := func(index, record any) error {
		sum.Read++
		e.notify(ctx, e.hooks.OnRecordEnter, index, "", nil)

		rc := pipeline.NewRecord(ctx, record, index, sink, opts...)
		err := p(rc)
		if err == nil {
			err = rc.Err()
		}
		if err == nil {
			err = rc.Flush(false)
		}
		sum.Emitted += rc.Flushes()

		switch {
		case err == nil:
			e.notify(ctx, e.hooks.OnRecordLeave, index, domain.OutcomeDone, nil)
			return nil
		case domain.IsSkip(err):
			sum.Skipped++
			e.logger.Debug("record skipped", "index", index)
			e.notify(ctx, e.hooks.OnRecordLeave, index, domain.OutcomeSkipped, nil)
			return nil
		case domain.IsStop(err):
			sum.Stopped = true
			e.logger.Info("migration stopped", "index", index)
			e.notify(ctx, e.hooks.OnRecordLeave, index, domain.OutcomeStopped, nil)
			return errStop
		default:
			e.logger.Error("record failed", "index", index, "error", err)
			e.notify(ctx, e.hooks.OnRecordLeave, index, domain.OutcomeFailed, err)
			return &domain.RecordError{Index: index, Err: err}
		}
	}

	err := iterate(ctx, src, visit)
	switch {
	case err == nil, errors.Is(err, errStop):
		return sum, nil
	case errors.Is(err, domain.ErrCapabilityMismatch):
		return sum, err
	}
	var re *domain.RecordError
	if errors.As(err, &re) {
		return sum, err
	}
	var se *domain.SourceError
	if !errors.As(err, &se) {
		err = &domain.SourceError{Source: fmt.Sprintf("%T", src), Err: err}
	}
	e.logger.Error("source failed", "error", err)
	return sum, err
}

// iterate adapts the three source capabilities to one (index, record) callback.
func iterate(ctx context.Context, src ports.Source, visit func(index, record any) error) error {
	switch src.Capability() {
	case ports.Ordinal:
		s, ok := src.(ports.OrdinalSource)
		if !ok {
			return fmt.Errorf("%w: %T is not an OrdinalSource", domain.ErrCapabilityMismatch, src)
		}
		return s.EachIndexed(ctx, func(i int, rec any) error { return visit(i, rec) })
	case ports.Keyed:
		s, ok := src.(ports.KeyedSource)
		if !ok {
			return fmt.Errorf("%w: %T is not a KeyedSource", domain.ErrCapabilityMismatch, src)
		}
		return s.EachKeyed(ctx, visit)
	case ports.Plain:
		s, ok := src.(ports.PlainSource)
		if !ok {
			return fmt.Errorf("%w: %T is not a PlainSource", domain.ErrCapabilityMismatch, src)
		}
		n := 0
		return s.Each(ctx, func(rec any) error {
			i := n
			n++
			return visit(i, rec)
		})
	}
	return fmt.Errorf("%w: unknown capability %v", domain.ErrCapabilityMismatch, src.Capability())
}

func (e *Engine) notify(ctx context.Context, hook func(context.Context, *domain.RecordEvent), index any, outcome domain.Outcome, err error) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.RecordEvent{
		Timestamp: time.Now(),
		Index:     index,
		Outcome:   outcome,
		Err:       err,
	})
}
