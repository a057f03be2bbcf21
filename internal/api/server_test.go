package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/id"
	"github.com/JakeFAU/trademark-crawler/internal/metrics"
)

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	rec := serve(t, NewServer(zap.NewNop(), nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestReadyzAllChecksPass(t *testing.T) {
	s := NewServer(zap.NewNop(), map[string]ReadinessCheck{
		"seen": func(context.Context) error { return nil },
	})
	rec := serve(t, s, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
}

func TestReadyzReportsFailures(t *testing.T) {
	s := NewServer(zap.NewNop(), map[string]ReadinessCheck{
		"seen":    func(context.Context) error { return nil },
		"records": func(context.Context) error { return errors.New("connection refused") },
	})
	rec := serve(t, s, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	failures, ok := decode(t, rec)["failures"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connection refused", failures["records"])
	assert.NotContains(t, failures, "seen")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.Init()
	metrics.ObserveNavigationEnded("MY", "Success")

	rec := serve(t, NewServer(nil, nil), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tmc_navigations_ended_total")
}

func TestDeriveKey(t *testing.T) {
	rec := serve(t, NewServer(nil, nil), "/v1/keys?office=my&key=ApplicationDate&strategy=Day&date=2024-03-01&page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MY-ApplicationDate-Day-2024-03-01-2", decode(t, rec)["key"])

	rec = serve(t, NewServer(nil, nil), "/v1/keys?office=MY&key=CaseNumber&strategy=Value&date=2024-03-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MY-CaseNumber-Value-2024-03-01-1", decode(t, rec)["key"])
}

func TestDeriveKeyValidation(t *testing.T) {
	s := NewServer(nil, nil)
	for _, target := range []string{
		"/v1/keys?key=ApplicationDate&strategy=Day&date=2024-03-01",
		"/v1/keys?office=MY&key=ApplicationDate&strategy=Day&date=03/01/2024",
		"/v1/keys?office=MY&key=ApplicationDate&strategy=Day&date=2024-03-01&page=0",
		"/v1/keys?office=MY&key=ApplicationDate&strategy=Day&date=2024-03-01&page=two",
	} {
		rec := serve(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, decode(t, rec)["error"], target)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	rec := serve(t, NewServer(nil, nil), "/healthz")
	_, err := id.TimeOf(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err, "generated request ids are time-ordered")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "replay-1")
	rec = httptest.NewRecorder()
	NewServer(nil, nil).Handler().ServeHTTP(rec, req)
	assert.Equal(t, "replay-1", rec.Header().Get("X-Request-ID"))
}

func TestRecoverMiddleware(t *testing.T) {
	s := NewServer(zap.NewNop(), nil)
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
