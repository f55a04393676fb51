package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/api"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/metrics"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/resultstore"
)

type staticStore struct {
	records domain.Records
	err     error
}

func (s *staticStore) Snapshot(context.Context) (domain.Records, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	store := &staticStore{records: domain.Records{
		{Domain: "a.com", Status: domain.StatusAvailable},
		{Domain: "b.com", Status: domain.StatusUnavailable},
		{Domain: "xn--mnchen-3ya.de", Status: domain.StatusAvailable},
	}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.RecordFallback()
	return api.NewRouter(store, reg, logger.NewNop(), "test", false)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := get(t, newRouter(t), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(api.RequestIDHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestListDomains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantCount int
	}{
		{"all", "/api/v1/domains", http.StatusOK, 3},
		{"filtered", "/api/v1/domains?status=available", http.StatusOK, 2},
		{"filtered empty", "/api/v1/domains?status=error", http.StatusOK, 0},
		{"bad status", "/api/v1/domains?status=maybe", http.StatusBadRequest, 0},
	}

	router := newRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := get(t, router, tt.path)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			var body struct {
				Domains domain.Records `json:"domains"`
				Count   int            `json:"count"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCount, body.Count)
			assert.Len(t, body.Domains, tt.wantCount)
		})
	}
}

func TestGetDomain(t *testing.T) {
	t.Parallel()

	router := newRouter(t)

	rec := get(t, router, "/api/v1/domains/A.COM")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.Record{Domain: "a.com", Status: domain.StatusAvailable}, got)

	rec = get(t, router, "/api/v1/domains/m%C3%BCnchen.de")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, router, "/api/v1/domains/zzz.org")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, router, "/api/v1/domains/localhost")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	rec := get(t, newRouter(t), "/api/v1/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total    int `json:"total"`
		Statuses []struct {
			Status string `json:"status"`
			Count  int    `json:"count"`
		} `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Statuses, 4)
	assert.Equal(t, "available", body.Statuses[0].Status)
	assert.Equal(t, 2, body.Statuses[0].Count)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	rec := get(t, newRouter(t), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "domain_checker_fallbacks_total 1")
}

func TestUnreadableStoreAnswers500(t *testing.T) {
	t.Parallel()

	store := &staticStore{err: resultstore.ErrCorrupt}
	router := api.NewRouter(store, nil, logger.NewNop(), "test", false)

	for _, path := range []string{"/api/v1/domains", "/api/v1/domains/a.com", "/api/v1/summary"} {
		rec := get(t, router, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
	}
	assert.Equal(t, http.StatusNotFound, get(t, router, "/metrics").Code)
}

func TestReadsDoNotTouchTheStoreFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	store := resultstore.New(config.StoreConfig{Path: path}, logger.NewNop())
	router := api.NewRouter(store, nil, logger.NewNop(), "test", false)

	rec := get(t, router, "/api/v1/domains")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoFileExists(t, path)

	garbage := []byte("not json")
	require.NoError(t, os.WriteFile(path, garbage, 0o600))
	rec = get(t, router, "/api/v1/summary")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, garbage, data)
}
