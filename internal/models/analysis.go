package models

import (
	"fmt"
	"sort"
	"strings"
)

// Analysis tiers
const (
	TierModel    = "model"    // Parsed model reply
	TierUnparsed = "unparsed" // Model replied but not with JSON
	TierFallback = "fallback" // Request failed, built from source content
)

// Confidence levels
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
	ConfidenceError  = "Error"
)

// Market sentiments
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Placeholders stand in for list entries a degraded or incomplete reply lacks
const (
	PlaceholderMissing     = "Not available"
	PlaceholderUnparsed    = "AI processing completed with non-standard format"
	PlaceholderUnavailable = "AI analysis temporarily unavailable"
)

// IsPlaceholder reports whether s is one of the placeholder entries
func IsPlaceholder(s string) bool {
	switch strings.TrimSpace(s) {
	case PlaceholderMissing, PlaceholderUnparsed, PlaceholderUnavailable:
		return true
	}
	return false
}

// MarketMetrics holds the market entities named in a report
type MarketMetrics struct {
	MentionedStocks []string `json:"mentioned_stocks" validate:"required"`
	Sectors         []string `json:"sectors" validate:"required"`
	MarketSentiment string   `json:"market_sentiment" validate:"required"`
}

// AnalysisMetadata records how an AnalysisResult was produced
type AnalysisMetadata struct {
	Model         string `json:"model,omitempty"`
	Provider      string `json:"provider,omitempty"`
	ContentLength int    `json:"content_length"`
	Truncated     bool   `json:"truncated"`
	Tier          string `json:"tier"`
	Error         string `json:"error,omitempty"`
}

// AnalysisResult is the structured, translated analysis of a report.
// Every field is always populated; list fields hold at least one entry.
type AnalysisResult struct {
	OriginalLanguage  string           `json:"original_language" validate:"required"`
	TranslatedContent string           `json:"translated_content" validate:"required"`
	Summary           string           `json:"summary" validate:"required"`
	KeyInsights       []string         `json:"key_insights" validate:"required,min=1"`
	MarketMetrics     MarketMetrics    `json:"market_metrics" validate:"required"`
	Outlook           string           `json:"outlook" validate:"required"`
	RiskFactors       []string         `json:"risk_factors" validate:"required,min=1"`
	ActionItems       []string         `json:"action_items" validate:"required,min=1"`
	ConfidenceLevel   string           `json:"confidence_level" validate:"required"`
	Metadata          AnalysisMetadata `json:"metadata"`
}

// AnalysisDefaults supplies the values used for keys the raw reply lacks
type AnalysisDefaults struct {
	OriginalLanguage  string
	TranslatedContent string
	Summary           string
	Outlook           string
	Sentiment         string
	Confidence        string
	Placeholder       string // Single entry for empty list fields
	// MetricsPlaceholder fills empty market_metrics lists. A parsed model
	// reply leaves it empty since naming no stocks is a valid answer.
	MetricsPlaceholder string
	Metadata          AnalysisMetadata
}

// NewAnalysisResult builds a fully shaped AnalysisResult from a decoded
// JSON object. Keys that are missing, null or of the wrong type take the
// matching default. A nil raw map yields a result made entirely of defaults.
func NewAnalysisResult(raw map[string]interface{}, defaults AnalysisDefaults) AnalysisResult {
	placeholder := defaults.Placeholder
	if placeholder == "" {
		placeholder = PlaceholderMissing
	}

	metrics, _ := raw["market_metrics"].(map[string]interface{})

	result := AnalysisResult{
		OriginalLanguage:  stringValue(raw, "original_language", orDefault(defaults.OriginalLanguage, "Unknown")),
		TranslatedContent: stringValue(raw, "translated_content", orDefault(defaults.TranslatedContent, placeholder)),
		Summary:           stringValue(raw, "summary", orDefault(defaults.Summary, placeholder)),
		KeyInsights:       listValue(raw, "key_insights", placeholder),
		MarketMetrics: MarketMetrics{
			MentionedStocks: listValue(metrics, "mentioned_stocks", defaults.MetricsPlaceholder),
			Sectors:         listValue(metrics, "sectors", defaults.MetricsPlaceholder),
			MarketSentiment: NormalizeSentiment(stringValue(metrics, "market_sentiment", orDefault(defaults.Sentiment, SentimentNeutral))),
		},
		Outlook:         stringValue(raw, "outlook", orDefault(defaults.Outlook, placeholder)),
		RiskFactors:     listValue(raw, "risk_factors", placeholder),
		ActionItems:     listValue(raw, "action_items", placeholder),
		ConfidenceLevel: NormalizeConfidence(stringValue(raw, "confidence_level", orDefault(defaults.Confidence, ConfidenceMedium))),
		Metadata:        defaults.Metadata,
	}

	return result
}

// NormalizeSentiment maps free-form sentiment text onto bullish, bearish or neutral
func NormalizeSentiment(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(lower, "bull"), strings.Contains(lower, "positive"):
		return SentimentBullish
	case strings.Contains(lower, "bear"), strings.Contains(lower, "negative"):
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// NormalizeConfidence title-cases known confidence levels and keeps unknown values
func NormalizeConfidence(s string) string {
	trimmed := strings.TrimSpace(s)
	for _, level := range []string{ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceError} {
		if strings.EqualFold(trimmed, level) {
			return level
		}
	}
	if trimmed == "" {
		return ConfidenceMedium
	}
	return trimmed
}

// IsDegraded reports whether the result came from a fallback tier
func (a AnalysisResult) IsDegraded() bool {
	return a.Metadata.Tier != TierModel
}

func orDefault(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

func stringValue(raw map[string]interface{}, key, fallback string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return fallback
		}
		return t
	case []interface{}:
		if items := listValue(raw, key, ""); len(items) > 0 {
			return strings.Join(items, "\n")
		}
		return fallback
	case map[string]interface{}:
		// Models sometimes nest outlook by horizon
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := t[k].(string); ok && s != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", k, s))
			}
		}
		if len(parts) == 0 {
			return fallback
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(t)
	}
}

// listValue returns the string entries of raw[key]. An empty result becomes
// a single placeholder entry, or an empty non-nil slice when placeholder is "".
func listValue(raw map[string]interface{}, key, placeholder string) []string {
	items := []string{}
	switch t := raw[key].(type) {
	case []interface{}:
		for _, item := range t {
			switch v := item.(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" {
					items = append(items, s)
				}
			case nil:
			default:
				items = append(items, fmt.Sprint(v))
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			items = append(items, s)
		}
	}

	if len(items) == 0 && placeholder != "" {
		return []string{placeholder}
	}
	return items
}
