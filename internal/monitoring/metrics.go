// Package monitoring tracks request outcomes and browser health. Counters
// are exposed twice: as Prometheus series for scraping and as a plain map
// embedded in healthcheck responses.
package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects server-wide counters. Safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   prometheus.Counter
	requestsSuccess prometheus.Counter
	requestsFailed  prometheus.Counter
	responseTime    prometheus.Histogram
	browserRestarts prometheus.Counter
	authFailures    prometheus.Counter
	activeSessions  prometheus.Gauge

	mu        sync.Mutex
	startedAt time.Time
	counts    struct {
		total, success, failed int64
		restarts, authFails    int64
		active                 int
	}
	totalDuration time.Duration
}

// NewMetrics builds a collector with its own registry, so tests can hold
// several without duplicate-registration panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startedAt: time.Now(),
		requestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "notebooklm_requests_total",
			Help: "Total tool requests handled.",
		}),
		requestsSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "notebooklm_requests_success_total",
			Help: "Tool requests that completed successfully.",
		}),
		requestsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "notebooklm_requests_failed_total",
			Help: "Tool requests that returned an error.",
		}),
		responseTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notebooklm_response_seconds",
			Help:    "Tool request duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		browserRestarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "notebooklm_browser_restarts_total",
			Help: "Times the browser session was relaunched.",
		}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "notebooklm_auth_failures_total",
			Help: "Rejected API requests and failed login checks.",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "notebooklm_active_sessions",
			Help: "Browser sessions currently open.",
		}),
	}
}

// RecordRequest records one tool request outcome and its duration.
func (m *Metrics) RecordRequest(success bool, d time.Duration) {
	m.requestsTotal.Inc()
	m.responseTime.Observe(d.Seconds())
	if success {
		m.requestsSuccess.Inc()
	} else {
		m.requestsFailed.Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts.total++
	if success {
		m.counts.success++
	} else {
		m.counts.failed++
	}
	m.totalDuration += d
}

// RecordBrowserRestart counts a browser relaunch.
func (m *Metrics) RecordBrowserRestart() {
	m.browserRestarts.Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts.restarts++
}

// RecordAuthFailure counts a rejected request or failed login check.
func (m *Metrics) RecordAuthFailure() {
	m.authFailures.Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts.authFails++
}

// SetActiveSessions records how many browser sessions are open.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts.active = n
}

// Snapshot returns the counters as a plain map for healthcheck output.
func (m *Metrics) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	avgMS := float64(0)
	if m.counts.total > 0 {
		avgMS = float64(m.totalDuration.Milliseconds()) / float64(m.counts.total)
	}

	return map[string]any{
		"requests_total":       m.counts.total,
		"requests_success":     m.counts.success,
		"requests_failed":      m.counts.failed,
		"avg_response_time_ms": avgMS,
		"browser_restarts":     m.counts.restarts,
		"auth_failures":        m.counts.authFails,
		"active_sessions":      m.counts.active,
		"uptime_seconds":       int64(time.Since(m.startedAt).Seconds()),
	}
}

// Handler returns the Prometheus exposition endpoint for this collector.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
