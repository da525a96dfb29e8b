package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/livepen/internal/domain/relay"
)

const namespace = "livepen"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Operation metrics
	OperationCalls    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Preview metrics
	Renders          prometheus.Counter
	RelayMessages    *prometheus.CounterVec
	RelayRejected    *prometheus.CounterVec
	ProbeDiagnostics prometheus.Counter
	HeadlessRuns     *prometheus.CounterVec
	HeadlessDuration prometheus.Histogram

	// Session metrics
	SessionsActive prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveConnections int64   `json:"active_connections"`
	Renders           int64   `json:"renders"`
	RelayMessages     int64   `json:"relay_messages"`
	AvgDurationMS     float64 `json:"avg_duration_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Operation metrics
		OperationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_calls_total",
				Help:      "Total number of session operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Session operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),

		// Preview metrics
		Renders: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Total number of composed document generations",
			},
		),
		RelayMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_messages_total",
				Help:      "Total number of relayed messages accepted",
			},
			[]string{"kind", "source"},
		),
		RelayRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_rejected_total",
				Help:      "Total number of relayed messages rejected",
			},
			[]string{"reason"},
		),
		ProbeDiagnostics: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probe_diagnostics_total",
				Help:      "Total number of syntax diagnostics reported",
			},
		),
		HeadlessRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "headless_runs_total",
				Help:      "Total number of headless renders",
			},
			[]string{"outcome"},
		),
		HeadlessDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "headless_duration_seconds",
				Help:      "Headless render duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of live sessions",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry all metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordOperation records a session operation
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	m.OperationCalls.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRender counts a new document generation
func (m *Metrics) RecordRender() {
	m.Renders.Inc()
	m.mu.Lock()
	m.snapshot.Renders++
	m.mu.Unlock()
}

// RecordMessage counts an accepted relay message
func (m *Metrics) RecordMessage(kind relay.Kind, source string) {
	m.RelayMessages.WithLabelValues(string(kind), source).Inc()
	m.mu.Lock()
	m.snapshot.RelayMessages++
	m.mu.Unlock()
}

// RecordRejected counts a rejected relay message
func (m *Metrics) RecordRejected(reason string) {
	m.RelayRejected.WithLabelValues(reason).Inc()
}

// RecordDiagnostic counts a syntax diagnostic
func (m *Metrics) RecordDiagnostic() {
	m.ProbeDiagnostics.Inc()
}

// RecordHeadless records a headless render
func (m *Metrics) RecordHeadless(duration time.Duration, timedOut bool) {
	outcome := "completed"
	if timedOut {
		outcome = "timeout"
	}
	m.HeadlessRuns.WithLabelValues(outcome).Inc()
	m.HeadlessDuration.Observe(duration.Seconds())
}

// SetSessions sets the number of live sessions
func (m *Metrics) SetSessions(n int) {
	m.SessionsActive.Set(float64(n))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(n)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON health endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()

	if snap.TotalRequests > 0 {
		snap.AvgDurationMS = snap.totalDuration / float64(snap.TotalRequests) * 1000
	}
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
