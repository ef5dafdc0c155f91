package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TravisH0301/weather-analysis/internal/adapter/httpadapter"
	"github.com/TravisH0301/weather-analysis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRuns struct {
	err    error
	report *domain.RunReport
}

func (m *mockRuns) CheckReadiness(_ context.Context) error { return m.err }

func (m *mockRuns) LastReport() (domain.RunReport, bool) {
	if m.report == nil {
		return domain.RunReport{}, false
	}
	return *m.report, true
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockRuns{}, slog.Default())
	rec := serve(srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeStatus(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockRuns{}, slog.Default())
	assert.Equal(t, http.StatusOK, serve(srv, "/readyz").Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockRuns{err: fmt.Errorf("no staging run has succeeded yet")}, slog.Default())
	rec := serve(srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeStatus(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no staging run has succeeded yet", body["error"])
}

func TestLastRunReturns404BeforeFirstRun(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockRuns{}, slog.Default())
	rec := serve(srv, "/runs/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no run yet", decodeStatus(t, rec)["status"])
}

func TestLastRunReturnsReport(t *testing.T) {
	report := domain.RunReport{
		RunID:  "run-1",
		Status: domain.RunSucceeded,
		Load:   domain.LoadResult{ObservationsInserted: 3},
	}
	srv := httpadapter.NewServer(":0", &mockRuns{report: &report}, slog.Default())

	rec := serve(srv, "/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, domain.RunSucceeded, got.Status)
	assert.Equal(t, 3, got.Load.ObservationsInserted)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockRuns{}, slog.Default())
	assert.Equal(t, http.StatusOK, serve(srv, "/metrics").Code)
}
