package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-unifier/internal/adapter/httpadapter"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRuns struct {
	last any
}

func (m *mockRuns) LastRun() (any, bool) { return m.last, m.last != nil }

func newTestServer(readyErr error, last any) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockRuns{last: last}, slog.Default())
}

func serve(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(t, newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(t, newTestServer(nil, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(t, newTestServer(errors.New("no run yet"), nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, newTestServer(nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLatestRun(t *testing.T) {
	rec := serve(t, newTestServer(nil, map[string]any{"run_id": "abc", "rows": 168}), "/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["run_id"])
	assert.InDelta(t, 168.0, body["rows"], 0)
}

func TestLatestRunBeforeFirstRun(t *testing.T) {
	rec := serve(t, newTestServer(nil, nil), "/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChecks(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, httpadapter.Checks{&mockReadiness{}, &mockReadiness{}}.CheckReadiness(ctx))

	err := httpadapter.Checks{&mockReadiness{}, &mockReadiness{err: errors.New("db down")}}.CheckReadiness(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
