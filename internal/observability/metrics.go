package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can take one optionally.
type Metrics struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	// HTTP metrics (fixture app)
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Browser session metrics
	SessionsStarted  *prometheus.CounterVec
	SessionsActive   prometheus.Gauge
	SessionDuration  prometheus.Histogram
	ScreenshotsTotal *prometheus.CounterVec

	// Wait metrics
	WaitDuration *prometheus.HistogramVec

	// Self-healing metrics
	SelfHealingAttempts *prometheus.CounterVec
	HistoryStoreOps     *prometheus.CounterVec

	// Scenario metrics
	ScenariosTotal   *prometheus.CounterVec
	ScenarioDuration *prometheus.HistogramVec
	SuiteRunsTotal   *prometheus.CounterVec

	// Temporal workflow metrics
	WorkflowsStarted   *prometheus.CounterVec
	WorkflowsCompleted *prometheus.CounterVec
	WorkflowDuration   *prometheus.HistogramVec
	ActivitiesExecuted *prometheus.CounterVec
}

// NewMetrics creates a metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pomsuite"
	}

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	m := &Metrics{
		registerer: reg,
		gatherer:   gatherer,

		// HTTP metrics
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Number of active HTTP requests",
			},
		),

		// Browser session metrics
		SessionsStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "browser_sessions_started_total",
				Help:      "Total number of browser sessions started",
			},
			[]string{"browser", "status"},
		),
		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "browser_sessions_active",
				Help:      "Number of live browser sessions",
			},
		),
		SessionDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "browser_session_duration_seconds",
				Help:      "Browser session lifetime in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		ScreenshotsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "screenshots_total",
				Help:      "Total number of failure screenshots captured",
			},
			[]string{"status"},
		),

		// Wait metrics
		WaitDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wait_duration_seconds",
				Help:      "Explicit wait duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"condition", "status"},
		),

		// Self-healing metrics
		SelfHealingAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "self_healing_attempts_total",
				Help:      "Total number of self-healing attempts",
			},
			[]string{"strategy", "status"},
		),
		HistoryStoreOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "locator_history_operations_total",
				Help:      "Total number of locator history store operations",
			},
			[]string{"store", "operation", "status"},
		),

		// Scenario metrics
		ScenariosTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenarios_total",
				Help:      "Total number of scenarios executed",
			},
			[]string{"scenario", "status"},
		),
		ScenarioDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scenario_duration_seconds",
				Help:      "Scenario duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"scenario"},
		),
		SuiteRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suite_runs_total",
				Help:      "Total number of suite runs",
			},
			[]string{"status"},
		),

		// Temporal workflow metrics
		WorkflowsStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflows_started_total",
				Help:      "Total number of workflows started",
			},
			[]string{"workflow_type"},
		),
		WorkflowsCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflows_completed_total",
				Help:      "Total number of workflows completed",
			},
			[]string{"workflow_type", "status"},
		),
		WorkflowDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_duration_seconds",
				Help:      "Workflow duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
			},
			[]string{"workflow_type"},
		),
		ActivitiesExecuted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activities_executed_total",
				Help:      "Total number of activities executed",
			},
			[]string{"activity_type", "status"},
		),
	}

	return m
}

// Handler returns the Prometheus HTTP handler for the registry the metrics
// were registered on
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == prometheus.DefaultGatherer {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{Registry: m.registerer})
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSessionStart records a browser launch attempt
func (m *Metrics) RecordSessionStart(browser, status string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(browser, status).Inc()
	if status == "success" {
		m.SessionsActive.Inc()
	}
}

// RecordSessionEnd records a browser session being released
func (m *Metrics) RecordSessionEnd(duration time.Duration) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(duration.Seconds())
}

// RecordScreenshot records a screenshot capture
func (m *Metrics) RecordScreenshot(status string) {
	if m == nil {
		return
	}
	m.ScreenshotsTotal.WithLabelValues(status).Inc()
}

// RecordWait records an explicit wait
func (m *Metrics) RecordWait(condition, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.WaitDuration.WithLabelValues(condition, status).Observe(duration.Seconds())
}

// RecordSelfHealing records self-healing metrics
func (m *Metrics) RecordSelfHealing(strategy, status string) {
	if m == nil {
		return
	}
	m.SelfHealingAttempts.WithLabelValues(strategy, status).Inc()
}

// RecordStoreOperation records a locator history store call
func (m *Metrics) RecordStoreOperation(store, operation, status string) {
	if m == nil {
		return
	}
	m.HistoryStoreOps.WithLabelValues(store, operation, status).Inc()
}

// RecordScenario records a scenario result
func (m *Metrics) RecordScenario(scenario, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ScenariosTotal.WithLabelValues(scenario, status).Inc()
	m.ScenarioDuration.WithLabelValues(scenario).Observe(duration.Seconds())
}

// RecordSuiteRun records a whole suite run
func (m *Metrics) RecordSuiteRun(status string) {
	if m == nil {
		return
	}
	m.SuiteRunsTotal.WithLabelValues(status).Inc()
}

// RecordWorkflowStart records workflow start
func (m *Metrics) RecordWorkflowStart(workflowType string) {
	if m == nil {
		return
	}
	m.WorkflowsStarted.WithLabelValues(workflowType).Inc()
}

// RecordWorkflowComplete records workflow completion
func (m *Metrics) RecordWorkflowComplete(workflowType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.WorkflowsCompleted.WithLabelValues(workflowType, status).Inc()
	m.WorkflowDuration.WithLabelValues(workflowType).Observe(duration.Seconds())
}

// RecordActivityExecution records activity execution
func (m *Metrics) RecordActivityExecution(activityType, status string) {
	if m == nil {
		return
	}
	m.ActivitiesExecuted.WithLabelValues(activityType, status).Inc()
}

// HTTPMiddleware returns middleware for recording HTTP metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsActive.Inc()
		defer m.HTTPRequestsActive.Dec()

		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
