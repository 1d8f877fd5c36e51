// Package analytics provides metrics for the usage aggregation engine.
package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricEventsRecorded   = "usage_events_recorded_total"
	MetricQueries          = "analytics_queries_total"
	MetricQueryDuration    = "analytics_query_duration_seconds"
	MetricEventsAggregated = "analytics_events_aggregated_total"
)

// Metrics contains Prometheus metrics for the analytics engine.
// All operations are thread-safe.
type Metrics struct {
	eventsRecorded   *prometheus.CounterVec
	queries          *prometheus.CounterVec
	queryDuration    prometheus.Histogram
	eventsAggregated prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		eventsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEventsRecorded,
				Help: "Total number of usage events recorded, by event name",
			},
			[]string{"name"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricQueries,
				Help: "Total number of analytics queries, by window",
			},
			[]string{"window"},
		),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricQueryDuration,
			Help:    "Histogram of analytics query duration in seconds (fetch, aggregate and series build)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		}),
		eventsAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricEventsAggregated,
			Help: "Total number of events folded by aggregation passes",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.eventsRecorded,
		m.queries,
		m.queryDuration,
		m.eventsAggregated,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncEventsRecorded increments the recorded-events counter for the event name.
func (m *Metrics) IncEventsRecorded(name string) {
	m.eventsRecorded.WithLabelValues(name).Inc()
}

// IncQueries increments the query counter for the window, e.g. "7d".
func (m *Metrics) IncQueries(window string) {
	m.queries.WithLabelValues(window).Inc()
}

// ObserveQueryDuration records an analytics query duration sample.
func (m *Metrics) ObserveQueryDuration(seconds float64) {
	m.queryDuration.Observe(seconds)
}

// AddEventsAggregated adds the size of an aggregated batch to the counter.
func (m *Metrics) AddEventsAggregated(n int) {
	m.eventsAggregated.Add(float64(n))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.eventsRecorded,
		m.queries,
		m.queryDuration,
		m.eventsAggregated,
	}
}
