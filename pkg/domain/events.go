package domain

import (
	"context"
	"time"
)

// Outcome describes how the processing of a source record ended.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeSkipped Outcome = "skipped"
	OutcomeStopped Outcome = "stopped"
	OutcomeFailed  Outcome = "failed"
)

// RecordEvent describes the lifecycle of a single source record.
type RecordEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Index     any       `json:"index"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Err       error     `json:"-"`
}

// FlushEvent describes one append to the sink.
type FlushEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Index     any            `json:"index"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LookupEvent describes a lookup that did not find its key.
type LookupEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Index     any       `json:"index"`
	Key       any       `json:"key"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnRecordEnter func(context.Context, *RecordEvent)
	OnRecordLeave func(context.Context, *RecordEvent)
	OnFlush       func(context.Context, *FlushEvent)
	OnLookupMiss  func(context.Context, *LookupEvent)
}

// Merge combines two hook sets; both callbacks run, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRecordEnter: chain(h.OnRecordEnter, other.OnRecordEnter),
		OnRecordLeave: chain(h.OnRecordLeave, other.OnRecordLeave),
		OnFlush:       chain(h.OnFlush, other.OnFlush),
		OnLookupMiss:  chain(h.OnLookupMiss, other.OnLookupMiss),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
