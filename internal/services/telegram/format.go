package telegram

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/reportrelay/internal/models"
)

// MaxSummaryLength caps the summary shown in a report message
const MaxSummaryLength = 400

// maxMessageLength is Telegram's limit for one message
const maxMessageLength = 4096

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Escape escapes legacy Markdown control characters in dynamic text
func Escape(s string) string {
	return markdownEscaper.Replace(s)
}

// SentimentGlyph maps a market sentiment to its chart glyph
func SentimentGlyph(sentiment string) string {
	switch models.NormalizeSentiment(sentiment) {
	case models.SentimentBullish:
		return "📈"
	case models.SentimentBearish:
		return "📉"
	default:
		return "➡️"
	}
}

// FormatReport renders the chat notification for a report. knowledgeBaseURL
// adds a "View in Notion" link when non-empty.
func FormatReport(report *models.CanonicalReport, knowledgeBaseURL string, insights int) string {
	a := report.Analysis
	var b strings.Builder

	fmt.Fprintf(&b, "📊 *%s*\n\n", Escape(report.Metadata.Title))
	fmt.Fprintf(&b, "📝 *Summary:*\n%s\n\n", Escape(clip(a.Summary, MaxSummaryLength)))

	if len(a.KeyInsights) > 0 && insights > 0 {
		b.WriteString("💡 *Key Insights:*\n")
		for i, insight := range a.KeyInsights {
			if i == insights {
				break
			}
			fmt.Fprintf(&b, "• %s\n", Escape(insight))
		}
		b.WriteString("\n")
	}

	if s := a.MarketMetrics.MarketSentiment; s != "" {
		fmt.Fprintf(&b, "%s *Sentiment:* %s\n", SentimentGlyph(s), titleCase(s))
	}
	if a.ConfidenceLevel != "" {
		fmt.Fprintf(&b, "🎯 *Confidence:* %s\n", Escape(a.ConfidenceLevel))
	}
	b.WriteString("\n")

	if knowledgeBaseURL != "" {
		fmt.Fprintf(&b, "🔗 [View in Notion](%s)\n", knowledgeBaseURL)
	}
	fmt.Fprintf(&b, "⏰ %s", timestamp(report.Metadata.Timestamp))

	return clip(b.String(), maxMessageLength)
}

// FormatError renders the processing-error notification
func FormatError(errMsg, context string, at time.Time) string {
	var b strings.Builder
	b.WriteString("🚨 *Market Report Processing Error*\n\n")
	fmt.Fprintf(&b, "*Error:* %s\n", Escape(errMsg))
	if context != "" {
		fmt.Fprintf(&b, "*Context:* %s\n", Escape(context))
	}
	fmt.Fprintf(&b, "*Time:* %s", at.Format("2006-01-02 15:04:05"))
	return clip(b.String(), maxMessageLength)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "Just now"
	}
	return t.Format("2006-01-02 15:04 MST")
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}
