package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by imports.
type Metrics struct {
	Imports      *prometheus.CounterVec
	RowsImported prometheus.Counter
	RowErrors    prometheus.Counter
	Duration     prometheus.Histogram
}

// NewMetrics creates the import collectors and registers them with reg when
// it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales",
			Subsystem: "import",
			Name:      "jobs_total",
			Help:      "Imports processed, by outcome.",
		}, []string{"outcome"}),
		RowsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sales",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Fact rows written.",
		}),
		RowErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sales",
			Subsystem: "import",
			Name:      "row_errors_total",
			Help:      "Rows rejected while parsing.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sales",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Time spent parsing one import.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Imports, m.RowsImported, m.RowErrors, m.Duration)
	}
	return m
}

func (m *Metrics) observe(outcome string, errors int, started time.Time) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(outcome).Inc()
	m.RowErrors.Add(float64(errors))
	m.Duration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) rows(n int) {
	if m == nil {
		return
	}
	m.RowsImported.Add(float64(n))
}
