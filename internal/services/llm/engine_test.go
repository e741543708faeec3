package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
)

type fakeGenerator struct {
	reply    string
	err      error
	requests []*ContentRequest
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	g.requests = append(g.requests, request)
	if g.err != nil {
		return nil, g.err
	}
	return &ContentResponse{Text: g.reply, Provider: ProviderGroq, Model: "moonshotai/kimi-k2-instruct"}, nil
}

func newTestEngine(g Generator) *Engine {
	cfg := common.NewDefaultConfig().LLM
	cfg.MaxContentLength = 50
	return NewEngine(g, cfg, arbor.NewLogger())
}

func assertFullyShaped(t *testing.T, r models.AnalysisResult) {
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
	assert.NotEmpty(t, r.Metadata.Tier)
}

const validReply = "```json\n" + `{
  "original_language": "German",
  "translated_content": "The DAX rose 2%.",
  "summary": "German equities advanced.",
  "key_insights": ["DAX up 2%", "Autos led"],
  "market_metrics": {"mentioned_stocks": ["BMW", "SAP"], "sectors": ["Autos"], "market_sentiment": "Bullish"},
  "outlook": "Further upside towards 19,000.",
  "risk_factors": ["ECB policy"],
  "action_items": ["Watch 18,500 support"],
  "confidence_level": "High"
}` + "\n```"

func TestAnalyze_ModelTier(t *testing.T) {
	g := &fakeGenerator{reply: validReply}
	r := newTestEngine(g).Analyze(context.Background(), "Der DAX stieg um 2%.")

	assertFullyShaped(t, r)
	assert.Equal(t, models.TierModel, r.Metadata.Tier)
	assert.Equal(t, "German", r.OriginalLanguage)
	assert.Equal(t, []string{"BMW", "SAP"}, r.MarketMetrics.MentionedStocks)
	assert.Equal(t, models.SentimentBullish, r.MarketMetrics.MarketSentiment)
	assert.Equal(t, models.ConfidenceHigh, r.ConfidenceLevel)
	assert.Equal(t, "groq", r.Metadata.Provider)

	require.Len(t, g.requests, 1)
	req := g.requests[0]
	assert.Equal(t, SystemPrompt, req.SystemInstruction)
	assert.True(t, req.JSONOutput)
	assert.InDelta(t, 0.2, req.Temperature, 0.0001)
	assert.Equal(t, 3000, req.MaxTokens)
	assert.True(t, strings.HasSuffix(req.Messages[0].Content, "Der DAX stieg um 2%."))
}

func TestAnalyze_TruncatesContent(t *testing.T) {
	g := &fakeGenerator{reply: validReply}
	content := strings.Repeat("ä", 80)

	r := newTestEngine(g).Analyze(context.Background(), content)

	assert.True(t, r.Metadata.Truncated)
	assert.Equal(t, 80, r.Metadata.ContentLength)
	require.Len(t, g.requests, 1)
	assert.True(t, strings.HasSuffix(g.requests[0].Messages[0].Content, "\n"+strings.Repeat("ä", 50)))
}

func TestAnalyze_MissingKeysFilled(t *testing.T) {
	g := &fakeGenerator{reply: `{"summary": "Short", "key_insights": []}`}

	r := newTestEngine(g).Analyze(context.Background(), "content")

	assertFullyShaped(t, r)
	assert.Equal(t, models.TierModel, r.Metadata.Tier)
	assert.Equal(t, "Short", r.Summary)
	assert.Equal(t, []string{"Not available"}, r.KeyInsights)
	assert.Equal(t, models.ConfidenceMedium, r.ConfidenceLevel)
}

func TestAnalyze_NonJSONReply(t *testing.T) {
	reply := strings.Repeat("The market closed higher. ", 40)
	g := &fakeGenerator{reply: reply}

	r := newTestEngine(g).Analyze(context.Background(), "content")

	assertFullyShaped(t, r)
	assert.Equal(t, models.TierUnparsed, r.Metadata.Tier)
	assert.Equal(t, models.ConfidenceLow, r.ConfidenceLevel)
	assert.Equal(t, reply, r.TranslatedContent)
	assert.Equal(t, 503, len([]rune(r.Summary)))
	assert.True(t, strings.HasSuffix(r.Summary, "..."))
	assert.Equal(t, []string{PlaceholderUnparsed}, r.KeyInsights)
	assert.Equal(t, []string{PlaceholderUnparsed}, r.ActionItems)
	assert.Equal(t, []string{PlaceholderUnparsed}, r.MarketMetrics.MentionedStocks)
	assert.Equal(t, []string{PlaceholderUnparsed}, r.MarketMetrics.Sectors)
	assert.True(t, r.IsDegraded())
}

func TestAnalyze_RequestError(t *testing.T) {
	g := &fakeGenerator{err: errors.New("dial tcp: connection refused")}

	r := newTestEngine(g).Analyze(context.Background(), "Original report text")

	assertFullyShaped(t, r)
	assert.Equal(t, models.TierFallback, r.Metadata.Tier)
	assert.Equal(t, models.ConfidenceError, r.ConfidenceLevel)
	assert.Equal(t, "Original report text", r.TranslatedContent)
	assert.Contains(t, r.Summary, "Processing failed: dial tcp: connection refused")
	assert.Equal(t, []string{PlaceholderUnavailable}, r.KeyInsights)
	assert.Equal(t, []string{PlaceholderUnavailable}, r.RiskFactors)
	assert.Equal(t, []string{PlaceholderUnavailable}, r.MarketMetrics.MentionedStocks)
	assert.Equal(t, []string{PlaceholderUnavailable}, r.MarketMetrics.Sectors)
	assert.Equal(t, "dial tcp: connection refused", r.Metadata.Error)
}

func TestAnalyze_EmptyContentAndMissingKey(t *testing.T) {
	cfg := common.NewDefaultConfig()
	factory := NewProviderFactory(cfg, arbor.NewLogger())

	r := NewEngine(factory, cfg.LLM, arbor.NewLogger()).Analyze(context.Background(), "")

	assertFullyShaped(t, r)
	assert.Equal(t, models.TierFallback, r.Metadata.Tier)
	assert.Equal(t, models.ConfidenceError, r.ConfidenceLevel)
	assert.Contains(t, r.Metadata.Error, "API key is not configured")
}
