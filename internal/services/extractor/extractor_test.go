package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
)

func newTestExtractor() *Extractor {
	return NewExtractor(common.NewDefaultConfig().Source, arbor.NewLogger())
}

func TestExtract_AllowListedLinkFirst(t *testing.T) {
	html := `<html><body>
		<a href="https://news.example.com/market-report">Other market report</a>
		<a href="mailto:desk@example.com">Contact</a>
		<a href="https://protradingskills.com/analysis/weekly-outlook/">Read the report</a>
		<a href="https://twitter.com/share">Share</a>
	</body></html>`

	got := newTestExtractor().Extract(html, "")

	assert.Equal(t, []string{"https://protradingskills.com/analysis/weekly-outlook/"}, got)
}

func TestExtract_SubdomainAndDuplicates(t *testing.T) {
	html := `<a href="https://www.protradingskills.com/analysis/a/">A</a>
		<a href="https://www.protradingskills.com/analysis/a/">A again</a>
		<a href="https://protradingskills.com/analysis/b/">B</a>
		<a href="https://protradingskills.com/shop/">Shop</a>`

	got := newTestExtractor().Extract(html, "")

	assert.Equal(t, []string{
		"https://www.protradingskills.com/analysis/a/",
		"https://protradingskills.com/analysis/b/",
	}, got)
}

func TestExtract_KeywordFallback(t *testing.T) {
	html := `<a href="https://example.com/about">About</a>
		<a href="https://example.com/daily-market-update">Update</a>`

	got := newTestExtractor().Extract(html, "")

	assert.Equal(t, []string{"https://example.com/daily-market-update"}, got)
}

func TestExtract_NothingMatches(t *testing.T) {
	html := `<p>Hello</p><a href="https://example.com/about">About</a>`

	got := newTestExtractor().Extract(html, "")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExtract_EmptyInput(t *testing.T) {
	assert.Empty(t, newTestExtractor().Extract("", ""))
	assert.Equal(t, "", newTestExtractor().First("", ""))
}

func TestExtract_TextFallback(t *testing.T) {
	text := "New issue is out: https://example.com/blog. Full analysis at " +
		"https://protradingskills.com/analysis/weekly-outlook/, enjoy."

	got := newTestExtractor().Extract("<p>no links here</p>", text)

	assert.Equal(t, []string{"https://protradingskills.com/analysis/weekly-outlook/"}, got)
}

func TestExtract_TextKeywordFallback(t *testing.T) {
	text := "See www.example.org/market-wrap and https://example.org/home"

	got := newTestExtractor().Extract("", text)

	assert.Equal(t, []string{"https://www.example.org/market-wrap"}, got)
}

func TestExtract_HTMLWinsOverText(t *testing.T) {
	html := `<a href="https://protradingskills.com/analysis/from-html/">x</a>`
	text := "https://protradingskills.com/analysis/from-text/"

	assert.Equal(t, "https://protradingskills.com/analysis/from-html/", newTestExtractor().First(html, text))
}

func TestExtract_AllowListedTextBeatsHTMLKeyword(t *testing.T) {
	html := `<a href="https://tracker.other.com/market-news?u=1">Market news</a>`
	text := "Read: https://protradingskills.com/analysis/weekly-outlook/"

	assert.Equal(t, "https://protradingskills.com/analysis/weekly-outlook/", newTestExtractor().First(html, text))
}

func TestExtract_HTMLKeywordBeforeTextKeyword(t *testing.T) {
	html := `<a href="https://example.com/market-wrap">Wrap</a>`
	text := "https://example.org/daily-report"

	assert.Equal(t, []string{"https://example.com/market-wrap"}, newTestExtractor().Extract(html, text))
}
