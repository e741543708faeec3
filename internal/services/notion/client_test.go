package notion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/httpclient"
	"github.com/ternarybob/reportrelay/internal/models"
)

func testReport() *models.CanonicalReport {
	return &models.CanonicalReport{
		Metadata: models.ReportMetadata{
			Title:     "Weekly Outlook",
			WordCount: 1200,
			Timestamp: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
			SourceURL: "https://protradingskills.com/analysis/weekly/",
		},
		Content: models.ReportContent{
			TranslatedContent: "Stocks rallied.",
			Images:            []string{"https://protradingskills.com/chart.png"},
		},
		Analysis: models.AnalysisResult{
			Summary:         "Markets rose.",
			KeyInsights:     []string{"Banks led", "Tech lagged"},
			MarketMetrics:   models.MarketMetrics{MentionedStocks: []string{"PKO", "PKO"}, Sectors: []string{"Banking, Finance"}, MarketSentiment: "bullish"},
			Outlook:         "Up",
			RiskFactors:     []string{"Rates"},
			ActionItems:     []string{"Watch support"},
			ConfidenceLevel: "High",
		},
	}
}

func testConfig(baseURL string) common.NotionConfig {
	cfg := common.NewDefaultConfig().Notion
	cfg.Token = "secret_test"
	cfg.DatabaseID = "db123"
	cfg.BaseURL = baseURL
	cfg.RateLimit = 0
	return cfg
}

func TestCreatePage(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/pages", r.URL.Path)
		assert.Equal(t, "Bearer secret_test", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		_, _ = w.Write([]byte(`{"object":"page","id":"page-1","url":"https://www.notion.so/page-1"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL+"/v1"), arbor.NewLogger())
	report := testReport()

	page, err := client.CreatePage(context.Background(), BuildProperties(report, "New"), BuildBlocks(report))

	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID)
	assert.Equal(t, "https://www.notion.so/page-1", page.URL)

	parent := body["parent"].(map[string]interface{})
	assert.Equal(t, "db123", parent["database_id"])
	props := body["properties"].(map[string]interface{})
	assert.Contains(t, props, "Title")
	assert.Contains(t, props, "Source URL")
	assert.Equal(t, "Bullish", props["Market Sentiment"].(map[string]interface{})["select"].(map[string]interface{})["name"])
	assert.Equal(t, float64(1200), props["Word Count"].(map[string]interface{})["number"])
}

func TestCreatePage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","code":"validation_error"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), arbor.NewLogger(), httpclient.WithRateLimit(0))
	_, err := client.CreatePage(context.Background(), map[string]Property{}, nil)

	var apiErr *httpclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestUpdatePageStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/pages/page-1", r.URL.Path)

		var body UpdatePageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Processed", body.Properties["Status"].Select.Name)
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), arbor.NewLogger())
	assert.NoError(t, client.UpdatePageStatus(context.Background(), "page-1", "Processed"))
}

func TestBuildProperties(t *testing.T) {
	report := testReport()
	report.Metadata.Title = strings.Repeat("T", 150)

	props := BuildProperties(report, "New")

	assert.Len(t, props["Title"].Title[0].Text.Content, MaxTitleLength)
	assert.Equal(t, "New", props["Status"].Select.Name)
	assert.Equal(t, "High", props["Confidence"].Select.Name)
	assert.Equal(t, []SelectOption{{Name: "PKO"}}, props["Stocks"].MultiSelect)
	assert.Equal(t, []SelectOption{{Name: "Banking  Finance"}}, props["Sectors"].MultiSelect)
	assert.Equal(t, "2025-03-14T09:30:00Z", props["Date"].Date.Start)
}

func TestBuildProperties_EmptyMetrics(t *testing.T) {
	report := testReport()
	report.Analysis.MarketMetrics = models.MarketMetrics{MentionedStocks: []string{}, Sectors: []string{}}

	props := BuildProperties(report, "New")

	assert.NotContains(t, props, "Sectors")
	assert.NotContains(t, props, "Stocks")
	assert.Equal(t, "Neutral", props["Market Sentiment"].Select.Name)
}

func TestBuildProperties_PlaceholdersNotTagged(t *testing.T) {
	report := testReport()
	report.Analysis.MarketMetrics = models.MarketMetrics{
		MentionedStocks: []string{models.PlaceholderUnavailable},
		Sectors:         []string{models.PlaceholderUnparsed, "Energy"},
		MarketSentiment: "neutral",
	}

	props := BuildProperties(report, "New")

	assert.NotContains(t, props, "Stocks")
	assert.Equal(t, []SelectOption{{Name: "Energy"}}, props["Sectors"].MultiSelect)
}

func TestBuildBlocks(t *testing.T) {
	blocks := BuildBlocks(testReport())

	var headings []string
	var todos int
	for _, b := range blocks {
		switch b.Type {
		case "heading_2":
			headings = append(headings, b.Heading2.RichText[0].Text.Content)
		case "to_do":
			todos++
			assert.False(t, *b.ToDo.Checked)
		}
	}

	assert.Equal(t, []string{
		HeadingSummary, HeadingInsights, HeadingMetrics, HeadingOutlook,
		HeadingRisks, HeadingActions, HeadingImages, HeadingFullReport,
	}, headings)
	assert.Equal(t, 1, todos)

	last := blocks[len(blocks)-1]
	require.Equal(t, "toggle", last.Type)
	assert.Equal(t, ToggleLabel, last.Toggle.RichText[0].Text.Content)
	assert.Equal(t, "Stocks rallied.", last.Toggle.Children[0].Paragraph.RichText[0].Text.Content)
}

func TestBuildBlocks_Limits(t *testing.T) {
	report := testReport()
	report.Analysis.Summary = strings.Repeat("word ", 1000)
	for i := 0; i < 150; i++ {
		report.Analysis.KeyInsights = append(report.Analysis.KeyInsights, "insight")
	}

	blocks := BuildBlocks(report)

	assert.LessOrEqual(t, len(blocks), MaxChildren)
	for _, b := range blocks {
		if b.Paragraph != nil {
			for _, rt := range b.Paragraph.RichText {
				assert.LessOrEqual(t, len([]rune(rt.Text.Content)), MaxRichTextLength)
			}
		}
	}
	assert.Equal(t, "paragraph", blocks[2].Type)
}

func TestChunk(t *testing.T) {
	assert.Empty(t, Chunk("   ", 10))
	assert.Equal(t, []string{"short"}, Chunk("short", 10))
	assert.Equal(t, []string{"alpha beta", "gamma"}, Chunk("alpha beta gamma", 12))
	assert.Equal(t, []string{"first", "second"}, Chunk("first\n\nsecond", 10))
	assert.Equal(t, []string{"ééé", "éé"}, Chunk("ééééé", 3))
}
