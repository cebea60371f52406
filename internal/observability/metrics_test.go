package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSessionStart("chrome", "success")
		m.RecordSessionEnd(time.Second)
		m.RecordScreenshot("success")
		m.RecordWait("visible", "success", time.Millisecond)
		m.RecordSelfHealing("id", "healed")
		m.RecordStoreOperation("memory", "save", "success")
		m.RecordScenario("valid login", "passed", time.Second)
		m.RecordSuiteRun("passed")
		m.RecordWorkflowStart("SuiteWorkflow")
		m.RecordWorkflowComplete("SuiteWorkflow", "completed", time.Second)
		m.RecordActivityExecution("RunScenario", "success")
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.HTTPMiddleware(next))
}

func TestMetrics_Sessions(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordSessionStart("chrome", "success")
	m.RecordSessionStart("edge", "failure")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsStarted.WithLabelValues("chrome", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsStarted.WithLabelValues("edge", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))

	m.RecordSessionEnd(3 * time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsActive))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordSelfHealing("id", "healed")
	m.RecordSelfHealing("id", "healed")
	m.RecordScenario("valid login", "passed", time.Second)
	m.RecordScreenshot("failure")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SelfHealingAttempts.WithLabelValues("id", "healed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScenariosTotal.WithLabelValues("valid login", "passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScreenshotsTotal.WithLabelValues("failure")))
}

func TestMetrics_HTTPMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	handler := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/login", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsActive))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())
	m.RecordSuiteRun("passed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_suite_runs_total{status="passed"} 1`))
}
