package report

import (
	"strings"
	"time"

	"github.com/ternarybob/reportrelay/internal/models"
)

// Assembler merges fetched, normalized and analyzed content into the
// canonical report delivered to every sink
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an assembler using the wall clock
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// NewAssemblerWithClock creates an assembler with an injected clock
func NewAssemblerWithClock(now func() time.Time) *Assembler {
	return &Assembler{now: now}
}

// Assemble builds the canonical report. The title falls back from the page
// title to the notification subject to DefaultReportTitle.
func (a *Assembler) Assemble(
	scrape models.ScrapeResult,
	normalized models.NormalizedContent,
	analysis models.AnalysisResult,
	subject string,
) *models.CanonicalReport {
	images := scrape.Images
	if images == nil {
		images = []string{}
	}

	originalText := normalized.MainContent
	if originalText == "" {
		originalText = strings.TrimSpace(scrape.TextContent)
	}

	return &models.CanonicalReport{
		Metadata: models.ReportMetadata{
			Title:     resolveTitle(scrape.Title, subject),
			WordCount: normalized.WordCount,
			Timestamp: a.now().UTC(),
			SourceURL: scrape.URL,
		},
		Content: models.ReportContent{
			OriginalText:      originalText,
			TranslatedContent: analysis.TranslatedContent,
			OriginalHTML:      scrape.HTMLContent,
			SafeHTML:          normalized.SafeHTML,
			Markdown:          normalized.Markdown,
			Images:            images,
		},
		Analysis: analysis,
	}
}

func resolveTitle(candidates ...string) string {
	for _, c := range candidates {
		if t := strings.Join(strings.Fields(c), " "); t != "" {
			return t
		}
	}
	return models.DefaultReportTitle
}
