package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/utxo-lifecycle-engine/internal/orchestrator"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

type fakeStore struct {
	rows      []models.MetricRow
	clusterID string
}

func (f *fakeStore) MetricRowsForDate(_ context.Context, _ time.Time) ([]models.MetricRow, error) {
	return f.rows, nil
}

func (f *fakeStore) ClusterOf(_ context.Context, _ string) (string, error) {
	return f.clusterID, nil
}

type fakeStatus struct{ status orchestrator.Status }

func (f *fakeStatus) Status() orchestrator.Status { return f.status }

type fakeSubscriber struct{}

func (fakeSubscriber) Subscribe(c *gin.Context) { c.Status(http.StatusSwitchingProtocols) }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&fakeStore{}, &fakeStatus{}, fakeSubscriber{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "operational")
}

func TestProgress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&fakeStore{}, &fakeStatus{status: orchestrator.Status{Phase: models.PhaseIncremental, CurrentHeight: 900}}, fakeSubscriber{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_height":900`)
}

func TestMetricsForDate_RejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&fakeStore{}, &fakeStatus{}, fakeSubscriber{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics/not-a-date", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsForDate_ReturnsRows(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&fakeStore{rows: []models.MetricRow{{Metric: "mvrv", Value: 1.5}}}, &fakeStatus{}, fakeSubscriber{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics/2026-01-01", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mvrv")
}

func TestClusterOf_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&fakeStore{clusterID: ""}, &fakeStatus{}, fakeSubscriber{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cluster/bc1qfoo", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClusterOf_Found(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&fakeStore{clusterID: "bc1qroot"}, &fakeStatus{}, fakeSubscriber{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cluster/bc1qfoo", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bc1qroot")
}

func TestAuthMiddleware_DevModeAllowsAll(t *testing.T) {
	t.Setenv("API_AUTH_TOKEN", "")
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&fakeStore{clusterID: "x"}, &fakeStatus{}, fakeSubscriber{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cluster/addr", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	t.Setenv("API_AUTH_TOKEN", "secret")
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&fakeStore{}, &fakeStatus{}, fakeSubscriber{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cluster/addr", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
