/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric names exposed by PrometheusMetrics.
const (
	metricMigrationDurationSeconds = "schema_migration_duration_seconds"
	metricMigrationFailuresTotal   = "schema_migration_failures_total"
)

// PrometheusMetrics represents collector of metrics for schema migration runs.
type PrometheusMetrics struct {
	Durations *prometheus.HistogramVec
	Failures  *prometheus.CounterVec
}

// PrometheusMetricsOption is a functional option for NewPrometheusMetrics.
type PrometheusMetricsOption func(*prometheusMetricsOptions)

type prometheusMetricsOptions struct {
	namespace string
}

// WithPrometheusNamespace sets a namespace for all migration metrics.
func WithPrometheusNamespace(namespace string) PrometheusMetricsOption {
	return func(o *prometheusMetricsOptions) {
		o.namespace = namespace
	}
}

// NewPrometheusMetrics creates a new collector of metrics for schema migration runs.
func NewPrometheusMetrics(options ...PrometheusMetricsOption) *PrometheusMetrics {
	var opts prometheusMetricsOptions
	for _, opt := range options {
		opt(&opts)
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: opts.namespace,
		Name:      metricMigrationDurationSeconds,
		Help:      "Duration of a single schema change unit execution.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"direction"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.namespace,
		Name:      metricMigrationFailuresTotal,
		Help:      "Total number of failed schema change unit executions.",
	}, []string{"direction"})

	return &PrometheusMetrics{Durations: durations, Failures: failures}
}

// MustRegister registers metrics in the default Prometheus registry
// and panics if any error occurs.
func (m *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(m.Durations, m.Failures)
}

// Unregister removes metrics from the default Prometheus registry.
func (m *PrometheusMetrics) Unregister() {
	prometheus.Unregister(m.Durations)
	prometheus.Unregister(m.Failures)
}

// ObserveExecution records the outcome of a single change unit execution.
func (m *PrometheusMetrics) ObserveExecution(direction string, elapsed time.Duration, err error) {
	m.Durations.WithLabelValues(direction).Observe(elapsed.Seconds())
	if err != nil {
		m.Failures.WithLabelValues(direction).Inc()
	}
}
