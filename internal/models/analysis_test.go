package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertFullyShaped(t *testing.T, r AnalysisResult) {
	t.Helper()
	assert.NotEmpty(t, r.OriginalLanguage)
	assert.NotEmpty(t, r.TranslatedContent)
	assert.NotEmpty(t, r.Summary)
	assert.NotEmpty(t, r.Outlook)
	assert.NotEmpty(t, r.ConfidenceLevel)
	assert.NotEmpty(t, r.KeyInsights)
	assert.NotEmpty(t, r.RiskFactors)
	assert.NotEmpty(t, r.ActionItems)
	assert.NotNil(t, r.MarketMetrics.MentionedStocks)
	assert.NotNil(t, r.MarketMetrics.Sectors)
	assert.NotEmpty(t, r.MarketMetrics.MarketSentiment)
}

func TestNewAnalysisResult_NilRaw(t *testing.T) {
	r := NewAnalysisResult(nil, AnalysisDefaults{Placeholder: "AI analysis temporarily unavailable", Confidence: ConfidenceError})

	assertFullyShaped(t, r)
	assert.Equal(t, []string{"AI analysis temporarily unavailable"}, r.KeyInsights)
	assert.Equal(t, ConfidenceError, r.ConfidenceLevel)
	assert.Equal(t, SentimentNeutral, r.MarketMetrics.MarketSentiment)
	assert.Equal(t, "Unknown", r.OriginalLanguage)
}

func TestNewAnalysisResult_FromReply(t *testing.T) {
	reply := `{
		"original_language": "Polish",
		"translated_content": "Stocks rallied.",
		"summary": "Markets up.",
		"key_insights": ["Banks led", "", 42],
		"market_metrics": {"mentioned_stocks": ["PKO"], "sectors": ["Banking"], "market_sentiment": "Bullish"},
		"outlook": {"short_term": "Up", "long_term": "Flat"},
		"risk_factors": "Rates",
		"confidence_level": "high"
	}`
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reply), &raw))

	r := NewAnalysisResult(raw, AnalysisDefaults{Metadata: AnalysisMetadata{Tier: TierModel}})

	assertFullyShaped(t, r)
	assert.Equal(t, "Polish", r.OriginalLanguage)
	assert.Equal(t, []string{"Banks led", "42"}, r.KeyInsights)
	assert.Equal(t, []string{"PKO"}, r.MarketMetrics.MentionedStocks)
	assert.Equal(t, SentimentBullish, r.MarketMetrics.MarketSentiment)
	assert.Equal(t, "long_term: Flat\nshort_term: Up", r.Outlook)
	assert.Equal(t, []string{"Rates"}, r.RiskFactors)
	assert.Equal(t, []string{"Not available"}, r.ActionItems)
	assert.Equal(t, ConfidenceHigh, r.ConfidenceLevel)
	assert.False(t, r.IsDegraded())
}

func TestNormalizeSentiment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bullish", SentimentBullish},
		{"moderately positive", SentimentBullish},
		{"BEARISH", SentimentBearish},
		{"negative", SentimentBearish},
		{"mixed", SentimentNeutral},
		{"", SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSentiment(tt.in))
		})
	}
}

func TestNormalizeConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceLow, NormalizeConfidence(" low "))
	assert.Equal(t, ConfidenceMedium, NormalizeConfidence(""))
	assert.Equal(t, "Moderate", NormalizeConfidence("Moderate"))
}

func TestPipelineResultDelivered(t *testing.T) {
	r := &PipelineResult{Outcomes: []SinkOutcome{
		{SinkName: SinkKnowledgeBase, Success: true},
		{SinkName: SinkChat, Success: false},
	}}

	assert.True(t, r.Delivered(SinkKnowledgeBase))
	assert.False(t, r.Delivered(SinkChat))
	assert.False(t, r.Delivered(SinkEmail))
}

func TestNewAnalysisResult_MetricsPlaceholder(t *testing.T) {
	r := NewAnalysisResult(nil, AnalysisDefaults{Placeholder: PlaceholderUnavailable, MetricsPlaceholder: PlaceholderUnavailable})
	assert.Equal(t, []string{PlaceholderUnavailable}, r.MarketMetrics.MentionedStocks)
	assert.Equal(t, []string{PlaceholderUnavailable}, r.MarketMetrics.Sectors)

	parsed := NewAnalysisResult(map[string]interface{}{"market_metrics": map[string]interface{}{}}, AnalysisDefaults{})
	assert.Empty(t, parsed.MarketMetrics.MentionedStocks)
	assert.NotNil(t, parsed.MarketMetrics.Sectors)
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(PlaceholderMissing))
	assert.True(t, IsPlaceholder(" "+PlaceholderUnparsed))
	assert.True(t, IsPlaceholder(PlaceholderUnavailable))
	assert.False(t, IsPlaceholder("AAPL"))
}
