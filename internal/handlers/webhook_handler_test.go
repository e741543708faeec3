package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/pipeline"
	"github.com/ternarybob/reportrelay/internal/services/sinks"
)

// mockPipeline implements PipelineRunner for testing
type mockPipeline struct {
	runFunc    func(ctx context.Context, n models.InboundNotification) (*models.PipelineResult, error)
	runURLFunc func(ctx context.Context, url string, opts sinks.Options) (*models.PipelineResult, error)
}

func (m *mockPipeline) Run(ctx context.Context, n models.InboundNotification) (*models.PipelineResult, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, n)
	}
	return nil, nil
}

func (m *mockPipeline) RunURL(ctx context.Context, url string, opts sinks.Options) (*models.PipelineResult, error) {
	if m.runURLFunc != nil {
		return m.runURLFunc(ctx, url, opts)
	}
	return nil, nil
}

func weeklyOutlookResult() *models.PipelineResult {
	return &models.PipelineResult{
		RunID:            "run-1",
		Success:          true,
		ReportTitle:      "Weekly Outlook",
		KnowledgeBaseURL: "https://notion.so/page-1",
		Outcomes: []models.SinkOutcome{
			{SinkName: models.SinkKnowledgeBase, Success: true, Reference: "https://notion.so/page-1"},
			{SinkName: models.SinkChat, Success: true, Reference: "42"},
			{SinkName: models.SinkEmail, Success: false, Error: "smtp down"},
		},
		Report: &models.CanonicalReport{
			Metadata: models.ReportMetadata{Title: "Weekly Outlook", WordCount: 812},
			Analysis: models.AnalysisResult{ConfidenceLevel: "High", OriginalLanguage: "Chinese"},
		},
	}
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMarketReportHandler_Success(t *testing.T) {
	var got models.InboundNotification
	h := NewWebhookHandler(&mockPipeline{
		runFunc: func(ctx context.Context, n models.InboundNotification) (*models.PipelineResult, error) {
			got = n
			return weeklyOutlookResult(), nil
		},
	}, arbor.NewLogger())

	rec := postJSON(h.MarketReportHandler, "/webhook/market-report",
		`{"subject":"Weekly Outlook","email_html":"<a href=\"https://example.com/report/1\">x</a>","skip_chat":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Weekly Outlook", got.Subject)
	assert.Contains(t, got.HTMLBody, "https://example.com/report/1")
	assert.True(t, got.SkipChat)
	assert.Equal(t, "webhook", got.Source)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "Weekly Outlook", body["report_title"])
	assert.Equal(t, "https://notion.so/page-1", body["knowledge_base_url"])
	assert.Equal(t, true, body["notion_saved"])
	assert.Equal(t, true, body["telegram_sent"])
	assert.Equal(t, false, body["email_sent"])
	assert.Equal(t, float64(812), body["word_count"])
	assert.Equal(t, "High", body["confidence_level"])
	assert.Equal(t, "Chinese", body["original_language"])
	assert.Len(t, body["sinks"], 3)
}

func TestMarketReportHandler_BodyAliases(t *testing.T) {
	var got models.InboundNotification
	h := NewWebhookHandler(&mockPipeline{
		runFunc: func(ctx context.Context, n models.InboundNotification) (*models.PipelineResult, error) {
			got = n
			return weeklyOutlookResult(), nil
		},
	}, arbor.NewLogger())

	rec := postJSON(h.MarketReportHandler, "/webhook/market-report",
		`{"subject":"s","body_html":"<p>html</p>","body":"plain"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>html</p>", got.HTMLBody)
	assert.Equal(t, "plain", got.TextBody)
}

func TestMarketReportHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "no report url",
			err:        pipeline.ErrNoReportURL,
			wantStatus: http.StatusBadRequest,
			wantError:  "No report URL found in email",
		},
		{
			name:       "acquisition timeout",
			err:        &pipeline.AcquisitionError{URL: "https://example.com/report/1", Message: "timeout"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to scrape report: timeout",
		},
		{
			name:       "configuration",
			err:        fmt.Errorf("fetch: %w", common.ErrConfiguration),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWebhookHandler(&mockPipeline{
				runFunc: func(ctx context.Context, n models.InboundNotification) (*models.PipelineResult, error) {
					return nil, tt.err
				},
			}, arbor.NewLogger())

			rec := postJSON(h.MarketReportHandler, "/webhook/market-report", `{"subject":"s","email_text":"x"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			require.Contains(t, body, "error")
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
		})
	}
}

func TestMarketReportHandler_InvalidRequest(t *testing.T) {
	called := false
	h := NewWebhookHandler(&mockPipeline{
		runFunc: func(ctx context.Context, n models.InboundNotification) (*models.PipelineResult, error) {
			called = true
			return nil, nil
		},
	}, arbor.NewLogger())

	rec := postJSON(h.MarketReportHandler, "/webhook/market-report", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/webhook/market-report", nil)
	rec = httptest.NewRecorder()
	h.MarketReportHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.False(t, called)
}

func TestScrapeHandler(t *testing.T) {
	var gotURL string
	var gotOpts sinks.Options
	h := NewWebhookHandler(&mockPipeline{
		runURLFunc: func(ctx context.Context, url string, opts sinks.Options) (*models.PipelineResult, error) {
			gotURL = url
			gotOpts = opts
			return weeklyOutlookResult(), nil
		},
	}, arbor.NewLogger())

	rec := postJSON(h.ScrapeHandler, "/scrape", `{"url":" https://example.com/report/1 ","skip_email":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com/report/1", gotURL)
	assert.True(t, gotOpts.SkipEmail)
	assert.False(t, gotOpts.SkipChat)
	assert.Equal(t, "Weekly Outlook", decodeBody(t, rec)["report_title"])

	rec = postJSON(h.ScrapeHandler, "/scrape", `{"url":"ftp://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
