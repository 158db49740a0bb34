package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/sluice/pkg/domain"
)

const namespace = "sluice"

// Metrics holds the Prometheus collectors of a migration.
type Metrics struct {
	recordsTotal   *prometheus.CounterVec
	rowsTotal      prometheus.Counter
	missesTotal    prometheus.Counter
	recordDuration prometheus.Histogram

	gatherer prometheus.Gatherer
	started  time.Time
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Source records processed, by outcome",
			},
			[]string{"outcome"},
		),
		rowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_emitted_total",
			Help:      "Output records appended to the sink",
		}),
		missesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_misses_total",
			Help:      "Lookups that did not find their key",
		}),
		recordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_duration_seconds",
			Help:      "Time spent processing one source record",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.recordsTotal, m.rowsTotal, m.missesTotal, m.recordDuration)

	// Expose every outcome from the start, even at zero.
	for _, o := range []domain.Outcome{domain.OutcomeDone, domain.OutcomeSkipped, domain.OutcomeStopped, domain.OutcomeFailed} {
		m.recordsTotal.WithLabelValues(string(o))
	}
	return m
}

// Hooks returns lifecycle hooks that update the metrics.
// Records are processed sequentially, so a single start time is enough.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRecordEnter: func(_ context.Context, e *domain.RecordEvent) {
			m.started = e.Timestamp
		},
		OnRecordLeave: func(_ context.Context, e *domain.RecordEvent) {
			m.recordsTotal.WithLabelValues(string(e.Outcome)).Inc()
			if !m.started.IsZero() {
				m.recordDuration.Observe(e.Timestamp.Sub(m.started).Seconds())
			}
		},
		OnFlush: func(_ context.Context, _ *domain.FlushEvent) {
			m.rowsTotal.Inc()
		},
		OnLookupMiss: func(_ context.Context, _ *domain.LookupEvent) {
			m.missesTotal.Inc()
		},
	}
}

// WriteTextfile writes the current values in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.gatherer)
}
