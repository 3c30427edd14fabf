package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IncidentMetrics tracks report ingestion and event bookkeeping.
type IncidentMetrics struct {
	reportsIngested *prometheus.CounterVec
	ingestDuration  prometheus.Histogram
	dataCreated     prometheus.Counter
	eventsReclaimed prometheus.Counter
}

// NewIncidentMetrics creates and registers the incident collectors.
func NewIncidentMetrics(registry *prometheus.Registry) (*IncidentMetrics, error) {
	m := &IncidentMetrics{
		reportsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "incident_reports_ingested_total",
				Help: "Total number of report submissions by result",
			},
			[]string{"result"}, // success, rejected, error
		),
		ingestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "incident_ingest_duration_seconds",
				Help:    "Time taken to ingest one report including geocoding and file storage",
				Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
			},
		),
		dataCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incident_data_created_total",
			Help: "Total number of data created for a new (area, date, category) key",
		}),
		eventsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incident_events_reclaimed_total",
			Help: "Total number of events deleted after losing their last datum",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IncidentMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{m.reportsIngested, m.ingestDuration, m.dataCreated, m.eventsReclaimed}
}

// Describe implements the Collector interface
func (m *IncidentMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *IncidentMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// ReportIngested records the result of one ingestion attempt.
func (m *IncidentMetrics) ReportIngested(result string, elapsed time.Duration) {
	m.reportsIngested.WithLabelValues(result).Inc()
	m.ingestDuration.Observe(elapsed.Seconds())
}

// DatumCreated counts a newly created datum.
func (m *IncidentMetrics) DatumCreated() {
	m.dataCreated.Inc()
}

// EventReclaimed counts an event deleted for having no data.
func (m *IncidentMetrics) EventReclaimed() {
	m.eventsReclaimed.Inc()
}
