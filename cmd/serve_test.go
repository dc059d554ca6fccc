package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medley-health/roster-cli/internal/config"
	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/pipeline"
	"github.com/medley-health/roster-cli/internal/store"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Match:    match.DefaultConfig(),
		Outliers: pipeline.DefaultOutlierConfig(),
		Merge:    config.MergeConfig{BasePath: t.TempDir()},
		Store:    config.StoreConfig{Driver: "sqlite"},
	}
	t.Cleanup(func() { cfg = prev })
}

func newServeTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestHealthEndpoint(t *testing.T) {
	setTestConfig(t)
	router := newRouter(newServeTestStore(t), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRosterEndpoint(t *testing.T) {
	setTestConfig(t)
	st := newServeTestStore(t)
	router := newRouter(st, nil)

	csv := strings.Join([]string{
		"provider_id,full_name,first_name,last_name,npi,practice_phone",
		"P001,Sarah Johnson,Sarah,Johnson,1234567893,(555) 123-4567",
		"P002,Michael Chen,Michael,Chen,1234567801,555-987-6543",
	}, "\n")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/roster?source=upload.csv", strings.NewReader(csv))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary pipeline.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalRecords)
	assert.Equal(t, 2, summary.FinalRecords)
	assert.NotEmpty(t, summary.QualityGrade)
}

func TestRosterEndpointRejectsBadBody(t *testing.T) {
	setTestConfig(t)
	router := newRouter(newServeTestStore(t), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/roster", strings.NewReader(`"unterminated`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsEndpoint(t *testing.T) {
	setTestConfig(t)
	st := newServeTestStore(t)
	router := newRouter(st, nil)

	run, err := st.CreateRun(context.Background(), "roster.csv")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, store.RunStatusRunning, got.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/no-such-run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryEndpointUnconfigured(t *testing.T) {
	setTestConfig(t)
	router := newRouter(newServeTestStore(t), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"how many providers?"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
