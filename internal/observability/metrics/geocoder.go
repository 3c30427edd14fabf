package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GeocoderMetrics tracks reverse geocoding outcomes and the upstream
// HTTP requests behind them.
type GeocoderMetrics struct {
	geocodeTotal     *prometheus.CounterVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewGeocoderMetrics creates and registers the geocoder collectors.
func NewGeocoderMetrics(registry *prometheus.Registry) (*GeocoderMetrics, error) {
	m := &GeocoderMetrics{
		geocodeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "incident_geocode_total",
				Help: "Total number of reverse geocoding lookups by outcome",
			},
			[]string{"outcome"}, // resolved, cached, skipped, no_region, rejected, failed
		),
		upstreamTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbound_http_requests_total",
				Help: "Total number of outbound HTTP requests",
			},
			[]string{"host", "status_code"}, // status_code is 0 when no response arrived
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outbound_http_request_duration_seconds",
				Help:    "Time taken for outbound HTTP requests",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
			},
			[]string{"host"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *GeocoderMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{m.geocodeTotal, m.upstreamTotal, m.upstreamDuration}
}

// Describe implements the Collector interface
func (m *GeocoderMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *GeocoderMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// GeocodeOutcome records one lookup outcome.
func (m *GeocoderMetrics) GeocodeOutcome(outcome string) {
	m.geocodeTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records one outbound request.
func (m *GeocoderMetrics) ObserveHTTPRequest(host string, status int, elapsed time.Duration, _ error) {
	m.upstreamTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(host).Observe(elapsed.Seconds())
}
