package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesCounters(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/dashboard", http.StatusOK, 20*time.Millisecond)
	m.ObserveBatch(BatchGrades, 3, 2)
	m.RecordNotifications(sourceSchedule, 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/dashboard",status="200"} 1`)
	assert.Contains(t, body, `batch_rows_total{kind="grades",outcome="failed"} 2`)
	assert.Contains(t, body, `batch_rows_total{kind="grades",outcome="processed"} 3`)
	assert.Contains(t, body, `notifications_created_total{source="schedule"} 3`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveBatch(BatchSchedule, 1, 1)
	m.RecordNotifications(sourceManual, 1)
	m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
