package notion

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/reportrelay/internal/models"
)

// maxToggleParagraphs caps the translated-content paragraphs inside the toggle
const maxToggleParagraphs = 40

// Section headings of a report page
const (
	HeadingSummary    = "📊 Executive Summary"
	HeadingInsights   = "💡 Key Insights"
	HeadingMetrics    = "📈 Market Metrics"
	HeadingOutlook    = "🔮 Market Outlook"
	HeadingRisks      = "⚠️ Risk Factors"
	HeadingActions    = "✅ Action Items"
	HeadingImages     = "🖼️ Charts"
	HeadingFullReport = "📄 Full Report (Translated)"
	ToggleLabel       = "Click to expand full content"
)

// BuildProperties returns the database properties for a report page
func BuildProperties(report *models.CanonicalReport, status string) map[string]Property {
	metrics := report.Analysis.MarketMetrics
	sourceURL := report.Metadata.SourceURL
	wordCount := report.Metadata.WordCount

	timestamp := report.Metadata.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	props := map[string]Property{
		"Title": {Title: []RichText{text(truncate(report.Metadata.Title, MaxTitleLength))}},
		"Date":  {Date: &DateValue{Start: timestamp.Format(time.RFC3339)}},
		"Status": {
			Select: &SelectOption{Name: status},
		},
		"Market Sentiment": {Select: &SelectOption{Name: titleCase(metrics.MarketSentiment)}},
		"Word Count":       {Number: &wordCount},
	}

	if sourceURL != "" {
		props["Source URL"] = Property{URL: &sourceURL}
	}
	if report.Analysis.ConfidenceLevel != "" {
		props["Confidence"] = Property{Select: &SelectOption{Name: selectName(report.Analysis.ConfidenceLevel)}}
	}
	if options := multiSelect(metrics.Sectors); len(options) > 0 {
		props["Sectors"] = Property{MultiSelect: options}
	}
	if options := multiSelect(metrics.MentionedStocks); len(options) > 0 {
		props["Stocks"] = Property{MultiSelect: options}
	}

	return props
}

// BuildBlocks returns the body blocks for a report page, at most MaxChildren
func BuildBlocks(report *models.CanonicalReport) []Block {
	a := report.Analysis
	var blocks []Block

	if a.Summary != "" {
		blocks = append(blocks, heading(HeadingSummary))
		blocks = append(blocks, paragraphs(a.Summary)...)
	}

	if len(a.KeyInsights) > 0 {
		blocks = append(blocks, heading(HeadingInsights))
		for _, insight := range a.KeyInsights {
			blocks = append(blocks, bullet(insight))
		}
	}

	m := a.MarketMetrics
	if len(m.MentionedStocks) > 0 || len(m.Sectors) > 0 || m.MarketSentiment != "" {
		blocks = append(blocks, heading(HeadingMetrics))
		if len(m.MentionedStocks) > 0 {
			blocks = append(blocks, labelled("Mentioned Stocks: ", strings.Join(limit(m.MentionedStocks), ", ")))
		}
		if len(m.Sectors) > 0 {
			blocks = append(blocks, labelled("Sectors: ", strings.Join(limit(m.Sectors), ", ")))
		}
		if m.MarketSentiment != "" {
			blocks = append(blocks, labelled("Sentiment: ", titleCase(m.MarketSentiment)))
		}
	}

	if a.Outlook != "" {
		blocks = append(blocks, heading(HeadingOutlook))
		blocks = append(blocks, paragraphs(a.Outlook)...)
	}

	if len(a.RiskFactors) > 0 {
		blocks = append(blocks, heading(HeadingRisks))
		for _, risk := range a.RiskFactors {
			blocks = append(blocks, bullet(risk))
		}
	}

	if len(a.ActionItems) > 0 {
		blocks = append(blocks, heading(HeadingActions))
		for _, item := range a.ActionItems {
			blocks = append(blocks, todo(item))
		}
	}

	if len(report.Content.Images) > 0 {
		blocks = append(blocks, heading(HeadingImages))
		for _, src := range limit(report.Content.Images) {
			blocks = append(blocks, image(src))
		}
	}

	// The full report goes last and is dropped first when the page is full
	full := report.Content.TranslatedContent
	if full == "" {
		full = report.Content.OriginalText
	}
	if full != "" && len(blocks)+2 <= MaxChildren {
		children := paragraphs(full)
		if len(children) > maxToggleParagraphs {
			children = children[:maxToggleParagraphs]
		}
		blocks = append(blocks, heading(HeadingFullReport), Block{
			Object: "block",
			Type:   "toggle",
			Toggle: &TextBlock{RichText: []RichText{text(ToggleLabel)}, Children: children},
		})
	}

	if len(blocks) > MaxChildren {
		blocks = blocks[:MaxChildren]
	}
	return blocks
}

func text(content string) RichText {
	return RichText{Type: "text", Text: Text{Content: content}}
}

func richText(content string) []RichText {
	return []RichText{text(truncate(content, MaxRichTextLength))}
}

func heading(content string) Block {
	return Block{Object: "block", Type: "heading_2", Heading2: &TextBlock{RichText: richText(content)}}
}

func bullet(content string) Block {
	return Block{Object: "block", Type: "bulleted_list_item", BulletedListItem: &TextBlock{RichText: richText(content)}}
}

func todo(content string) Block {
	unchecked := false
	return Block{Object: "block", Type: "to_do", ToDo: &TextBlock{RichText: richText(content), Checked: &unchecked}}
}

func image(src string) Block {
	return Block{Object: "block", Type: "image", Image: &ImageBlock{Type: "external", External: ExternalFile{URL: src}}}
}

func labelled(label, value string) Block {
	return Block{Object: "block", Type: "paragraph", Paragraph: &TextBlock{RichText: []RichText{
		{Type: "text", Text: Text{Content: label}, Annotations: &Annotations{Bold: true}},
		text(truncate(value, MaxRichTextLength)),
	}}}
}

// paragraphs splits content into paragraph blocks of at most MaxRichTextLength runes
func paragraphs(content string) []Block {
	var blocks []Block
	for _, chunk := range Chunk(content, MaxRichTextLength) {
		blocks = append(blocks, Block{Object: "block", Type: "paragraph", Paragraph: &TextBlock{RichText: []RichText{text(chunk)}}})
	}
	return blocks
}

// Chunk splits s into pieces of at most size runes, preferring paragraph
// and line breaks as cut points
func Chunk(s string, size int) []string {
	s = strings.TrimSpace(s)
	var chunks []string
	for s != "" {
		if utf8.RuneCountInString(s) <= size {
			chunks = append(chunks, s)
			break
		}

		runes := []rune(s)
		window := string(runes[:size])
		cut := strings.LastIndex(window, "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(window, "\n")
		}
		if cut <= 0 {
			cut = strings.LastIndex(window, " ")
		}
		if cut <= 0 {
			cut = len(window)
		}

		chunks = append(chunks, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	return chunks
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func limit(items []string) []string {
	if len(items) > MaxMultiSelect {
		return items[:MaxMultiSelect]
	}
	return items
}

// selectName makes a value safe for a select option (no commas, bounded length)
func selectName(s string) string {
	return truncate(strings.TrimSpace(strings.ReplaceAll(s, ",", " ")), MaxSelectLength)
}

// multiSelect turns list entries into tags, skipping placeholder entries
func multiSelect(items []string) []SelectOption {
	seen := map[string]bool{}
	options := []SelectOption{}
	for _, item := range items {
		if models.IsPlaceholder(item) {
			continue
		}
		name := selectName(item)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		options = append(options, SelectOption{Name: name})
		if len(options) == MaxMultiSelect {
			break
		}
	}
	return options
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Neutral"
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}
