// Package metrics holds Prometheus collectors for catalog operations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "catalog"

// Catalog counts and times catalog service operations.
// A nil *Catalog is valid and records nothing.
type Catalog struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	seeded     prometheus.Counter
}

// NewCatalog creates the collectors and registers them on reg.
func NewCatalog(reg prometheus.Registerer) (*Catalog, error) {
	m := &Catalog{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of catalog operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Catalog operation duration in seconds.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),
		seeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeded_documents_total",
			Help:      "Total number of sample documents inserted into an empty catalog.",
		}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.duration, m.seeded} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register catalog metrics: %w", err)
		}
	}
	return m, nil
}

// Observe records one finished operation started at start.
func (m *Catalog) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Seeded adds n to the seeded documents counter.
func (m *Catalog) Seeded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.seeded.Add(float64(n))
}
