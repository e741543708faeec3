package content

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/models"
)

// nonContentSelector lists elements that never carry report text
const nonContentSelector = "script, style, nav, header, footer, aside, noscript"

// Normalizer converts scraped HTML into the text, markdown and sanitized
// views used by analysis and the sinks. It holds no per-call state.
type Normalizer struct {
	policy *bluemonday.Policy
	logger arbor.ILogger
}

// NewNormalizer creates a new content normalizer
func NewNormalizer(logger arbor.ILogger) *Normalizer {
	return &Normalizer{
		policy: bluemonday.UGCPolicy(),
		logger: logger,
	}
}

// Normalize strips non-content markup from rawHTML and derives the plain
// text, word count, markdown and sanitized HTML views. baseURL resolves
// relative links in the markdown view and may be empty.
func (n *Normalizer) Normalize(rawHTML, baseURL string) models.NormalizedContent {
	if strings.TrimSpace(rawHTML) == "" {
		return models.NormalizedContent{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		n.logger.Warn().Err(err).Msg("Failed to parse HTML for normalization")
		return models.NormalizedContent{}
	}

	title := extractTitle(doc)
	doc.Find(nonContentSelector).Remove()

	text := JoinText(doc.Find("body"))

	cleaned, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(cleaned) == "" {
		cleaned, _ = doc.Html()
	}

	result := models.NormalizedContent{
		Title:       title,
		MainContent: text,
		WordCount:   CountWords(text),
		Markdown:    n.toMarkdown(cleaned, baseURL),
		SafeHTML:    strings.TrimSpace(n.policy.Sanitize(cleaned)),
	}

	n.logger.Debug().
		Int("html_length", len(rawHTML)).
		Int("text_length", len(result.MainContent)).
		Int("word_count", result.WordCount).
		Int("markdown_length", len(result.Markdown)).
		Msg("Content normalized")

	return result
}

// Sanitize applies the UGC policy to untrusted HTML
func (n *Normalizer) Sanitize(rawHTML string) string {
	return n.policy.Sanitize(rawHTML)
}

func (n *Normalizer) toMarkdown(cleanedHTML, baseURL string) string {
	converted, err := md.NewConverter(baseURL, true, nil).ConvertString(cleanedHTML)
	if err != nil {
		n.logger.Warn().Err(err).Msg("HTML to markdown conversion failed")
		return ""
	}
	return strings.TrimSpace(converted)
}

// JoinText joins every text node under sel with single spaces
func JoinText(sel *goquery.Selection) string {
	var parts []string
	collectText(sel, &parts)
	return strings.Join(parts, " ")
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(i int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			*parts = append(*parts, strings.Fields(s.Text())...)
			return
		}
		collectText(s, parts)
	})
}

// CountWords counts whitespace-separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")
}
