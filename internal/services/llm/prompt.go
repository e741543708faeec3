package llm

import (
	"strings"
	"unicode/utf8"
)

// SystemPrompt fixes the analyst role for every analysis request
const SystemPrompt = "You are an expert financial analyst and translator. Always respond with valid JSON format."

// responseShape is the exact JSON object the model must return
const responseShape = `{
    "original_language": "detected language name, or 'English'",
    "translated_content": "full content translated to English, preserving all numbers, tickers and financial terms",
    "summary": "3-4 sentence executive summary of the most important points",
    "key_insights": ["5-7 specific, actionable insights"],
    "market_metrics": {
        "mentioned_stocks": ["tickers or company names mentioned"],
        "sectors": ["sectors discussed"],
        "market_sentiment": "bullish, bearish or neutral"
    },
    "outlook": "expected market direction and key levels to watch",
    "risk_factors": ["major risks identified"],
    "action_items": ["concrete steps for investors or traders"],
    "confidence_level": "High, Medium or Low, based on data quality and certainty"
}`

// BuildPrompt returns the user prompt for content. The content is embedded
// verbatim as the final segment.
func BuildPrompt(content string) string {
	var b strings.Builder
	b.WriteString("Analyze this financial market report and respond with a single JSON object.\n\n")
	b.WriteString("1. Language detection: identify the original language of the report.\n")
	b.WriteString("2. Translation: if it is not in English, translate it to English. Keep every number, percentage, price level, ticker and financial term exactly as written.\n")
	b.WriteString("3. Analysis: extract the key information using the structure below.\n\n")
	b.WriteString("Response format (must be valid JSON, no prose outside the object):\n")
	b.WriteString(responseShape)
	b.WriteString("\n\nContent to analyze:\n")
	b.WriteString(content)
	return b.String()
}

// Truncate cuts s to at most max runes. It reports whether s was cut.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:max]), true
}

// preview returns the first max runes of s followed by "..." when cut
func preview(s string, max int) string {
	cut, truncated := Truncate(s, max)
	if truncated {
		return cut + "..."
	}
	return cut
}
