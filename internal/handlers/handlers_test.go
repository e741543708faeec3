package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/services/scheduler"
	"github.com/ternarybob/reportrelay/internal/storage/badger"
)

// mockAnalyzer implements Analyzer for testing
type mockAnalyzer struct {
	content string
}

func (m *mockAnalyzer) Analyze(ctx context.Context, content string) models.AnalysisResult {
	m.content = content
	return models.NewAnalysisResult(map[string]interface{}{
		"summary":          "Markets steady",
		"confidence_level": "high",
	}, models.AnalysisDefaults{Metadata: models.AnalysisMetadata{Tier: models.TierModel}})
}

func TestTestAIHandler(t *testing.T) {
	analyzer := &mockAnalyzer{}
	h := NewAnalysisHandler(analyzer, arbor.NewLogger())

	rec := postJSON(h.TestAIHandler, "/test-ai", `{"content":"Stocks rallied"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Stocks rallied", analyzer.content)

	body := decodeBody(t, rec)
	assert.Equal(t, "Markets steady", body["summary"])
	assert.Equal(t, "High", body["confidence_level"])
	assert.NotEmpty(t, body["key_insights"])
}

func TestTestAIHandler_DefaultContent(t *testing.T) {
	analyzer := &mockAnalyzer{}
	h := NewAnalysisHandler(analyzer, arbor.NewLogger())

	rec := postJSON(h.TestAIHandler, "/test-ai", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultTestContent, analyzer.content)

	rec = postJSON(h.TestAIHandler, "/test-ai", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultTestContent, analyzer.content)
}

func TestHealthHandler(t *testing.T) {
	h := NewStatusHandler(nil, nil, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, body["version"])
}

// mockJobs implements JobStatusProvider for testing
type mockJobs struct{}

func (mockJobs) GetJobStatus(name string) (*scheduler.JobStatus, error) {
	if name != "imap_poll" {
		return nil, fmt.Errorf("job not found: %s", name)
	}
	return &scheduler.JobStatus{Name: name, Schedule: "0 */5 * * * *"}, nil
}

func TestGetStatusHandler(t *testing.T) {
	h := NewStatusHandler(mockJobs{}, []string{"imap_poll", "missing"}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.GetStatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	jobs, ok := body["jobs"].([]interface{})
	require.True(t, ok)
	require.Len(t, jobs, 1)
	assert.Equal(t, "imap_poll", jobs[0].(map[string]interface{})["name"])

	build, ok := body["build"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, common.Version, build["version"])
	assert.NotEmpty(t, build["go_version"])
}

// mockRunStore implements RunStore for testing
type mockRunStore struct {
	runs    []*models.RunRecord
	listErr error
	status  string
	limit   int
}

func (m *mockRunStore) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, badger.ErrRunNotFound
}

func (m *mockRunStore) ListRuns(ctx context.Context, status string, limit int) ([]*models.RunRecord, error) {
	m.status = status
	m.limit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.runs, nil
}

func (m *mockRunStore) CountRuns(ctx context.Context) (int, error) {
	return len(m.runs), nil
}

func TestListRunsHandler(t *testing.T) {
	store := &mockRunStore{runs: []*models.RunRecord{
		{ID: "a", Status: models.RunStatusSuccess, StartedAt: time.Now()},
		{ID: "b", Status: models.RunStatusFailed, StartedAt: time.Now()},
	}}
	h := NewRunsHandler(store, 0, arbor.NewLogger())

	tests := []struct {
		name      string
		url       string
		wantLimit int
	}{
		{"default limit", "/runs", defaultRunsLimit},
		{"explicit limit", "/runs?limit=5", 5},
		{"clamped limit", "/runs?limit=100000", maxRunsLimit},
		{"invalid limit", "/runs?limit=abc", defaultRunsLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()
			h.ListRunsHandler(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantLimit, store.limit)
			body := decodeBody(t, rec)
			assert.Equal(t, float64(2), body["count"])
			assert.Equal(t, float64(2), body["total"])
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/runs?status=failed", nil)
	rec := httptest.NewRecorder()
	h.ListRunsHandler(rec, req)
	assert.Equal(t, "failed", store.status)
}

func TestListRunsHandler_StoreError(t *testing.T) {
	h := NewRunsHandler(&mockRunStore{listErr: errors.New("disk")}, 0, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	h.ListRunsHandler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to list runs", decodeBody(t, rec)["error"])
}

func TestGetRunHandler(t *testing.T) {
	h := NewRunsHandler(&mockRunStore{runs: []*models.RunRecord{
		{ID: "abc", Title: "Weekly Outlook", Status: models.RunStatusSuccess},
	}}, 10, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/runs/abc", nil)
	rec := httptest.NewRecorder()
	h.GetRunHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Weekly Outlook", decodeBody(t, rec)["title"])

	req = httptest.NewRequest(http.MethodGet, "/runs/missing", nil)
	rec = httptest.NewRecorder()
	h.GetRunHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/runs/", nil)
	rec = httptest.NewRecorder()
	h.GetRunHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
