package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call results recorded in the result label.
const (
	ResultOK      = "ok"
	ResultAbsent  = "absent"
	ResultStopped = "stopped"
	ResultFault   = "fault"
	ResultFailed  = "failed"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can run without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	// Shuttle call metrics
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	HandlesSent  *prometheus.CounterVec

	// Lifecycle metrics
	InstancesActive prometheus.Gauge
	InstancesTotal  prometheus.Counter
	IdleStops       prometheus.Counter
	Connections     prometheus.Gauge

	// Media metrics
	ThumbnailsGenerated *prometheus.CounterVec
	IndexedMedia        prometheus.Gauge

	// Admin HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshuttle_calls_total",
				Help: "Total number of shuttle RPC calls",
			},
			[]string{"op", "result"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fileshuttle_call_duration_seconds",
				Help:    "Shuttle RPC call duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"op"},
		),
		HandlesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshuttle_handles_sent_total",
				Help: "File descriptors handed across the boundary",
			},
			[]string{"kind"},
		),

		InstancesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fileshuttle_instances_active",
				Help: "Bound shuttle service instances (0 or 1)",
			},
		),
		InstancesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fileshuttle_instances_total",
				Help: "Shuttle service instances bound since start",
			},
		),
		IdleStops: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fileshuttle_idle_stops_total",
				Help: "Instances that stopped themselves after the idle timeout",
			},
		),
		Connections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fileshuttle_connections",
				Help: "Open client connections",
			},
		),

		ThumbnailsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshuttle_thumbnails_generated_total",
				Help: "Thumbnail generation attempts",
			},
			[]string{"result"},
		),
		IndexedMedia: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fileshuttle_indexed_media",
				Help: "Media files registered by the last index scan",
			},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshuttle_admin_http_requests_total",
				Help: "Admin HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fileshuttle_admin_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Handler returns the Prometheus exposition handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCall records one shuttle call
func (m *Metrics) RecordCall(op, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(op, result).Inc()
	m.CallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHandleSent records a descriptor passed to a caller
func (m *Metrics) RecordHandleSent(kind string) {
	if m == nil {
		return
	}
	m.HandlesSent.WithLabelValues(kind).Inc()
}

// InstanceBound records a fresh bind
func (m *Metrics) InstanceBound() {
	if m == nil {
		return
	}
	m.InstancesActive.Set(1)
	m.InstancesTotal.Inc()
}

// InstanceStopped records an instance leaving the Active state
func (m *Metrics) InstanceStopped(idle bool) {
	if m == nil {
		return
	}
	m.InstancesActive.Set(0)
	if idle {
		m.IdleStops.Inc()
	}
}

// IncConnections increments open connections
func (m *Metrics) IncConnections() {
	if m == nil {
		return
	}
	m.Connections.Inc()
}

// DecConnections decrements open connections
func (m *Metrics) DecConnections() {
	if m == nil {
		return
	}
	m.Connections.Dec()
}

// RecordThumbnail records a thumbnail generation attempt
func (m *Metrics) RecordThumbnail(result string) {
	if m == nil {
		return
	}
	m.ThumbnailsGenerated.WithLabelValues(result).Inc()
}

// SetIndexedMedia sets the number of indexed media files
func (m *Metrics) SetIndexedMedia(count int) {
	if m == nil {
		return
	}
	m.IndexedMedia.Set(float64(count))
}

// RecordHTTPRequest records an admin HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
