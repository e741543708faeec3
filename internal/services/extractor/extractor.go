// -----------------------------------------------------------------------
// URL Extractor - finds the report link inside an inbound email body
// -----------------------------------------------------------------------

package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
)

// urlPattern matches absolute http(s) URLs and bare www. hosts in plain text
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"'()\[\]]+|www\.[^\s<>"'()\[\]]+`)

// Extractor returns candidate report URLs from email bodies
type Extractor struct {
	domain     string
	pathPrefix string
	keywords   []string
	logger     arbor.ILogger
}

// NewExtractor creates an extractor for the configured report source
func NewExtractor(source common.SourceConfig, logger arbor.ILogger) *Extractor {
	keywords := make([]string, 0, len(source.Keywords))
	for _, k := range source.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}

	return &Extractor{
		domain:     strings.ToLower(strings.TrimPrefix(source.AllowedDomain, "www.")),
		pathPrefix: source.PathPrefix,
		keywords:   keywords,
		logger:     logger,
	}
}

// Extract returns de-duplicated candidate URLs in document order.
// The strict host/path allow-list is tried over the HTML links and then
// over the plain-text URLs; the keyword heuristic only runs when neither
// body holds an allow-listed link. An empty slice means no candidate was found.
func (e *Extractor) Extract(htmlBody, textBody string) []string {
	htmlLinks := e.fromHTML(htmlBody)
	textLinks := e.fromText(textBody)

	for _, keep := range []func(string) bool{e.isAllowListed, e.matchesKeyword} {
		for _, links := range [][]string{htmlLinks, textLinks} {
			if candidates := dedupe(links, keep); len(candidates) > 0 {
				return candidates
			}
		}
	}

	e.logger.Debug().
		Int("html_length", len(htmlBody)).
		Int("text_length", len(textBody)).
		Int("links_seen", len(htmlLinks)+len(textLinks)).
		Msg("No report URL candidates found")

	return []string{}
}

// First returns the first candidate URL, or "" when there is none
func (e *Extractor) First(htmlBody, textBody string) string {
	if candidates := e.Extract(htmlBody, textBody); len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

// fromHTML returns every navigable anchor href in document order
func (e *Extractor) fromHTML(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		e.logger.Debug().Err(err).Msg("Failed to parse email HTML")
		return nil
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if href = strings.TrimSpace(href); href != "" && !shouldSkipLink(href) {
				hrefs = append(hrefs, href)
			}
		}
	})

	return hrefs
}

// fromText returns every URL-looking token in the plain-text body
func (e *Extractor) fromText(body string) []string {
	if body == "" {
		return nil
	}

	matches := urlPattern.FindAllString(body, -1)
	found := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?")
		if !strings.HasPrefix(strings.ToLower(m), "http") {
			m = "https://" + m
		}
		found = append(found, m)
	}
	return found
}

func (e *Extractor) isAllowListed(link string) bool {
	if e.domain == "" {
		return false
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host != e.domain && !strings.HasSuffix(host, "."+e.domain) {
		return false
	}

	return e.pathPrefix == "" || strings.HasPrefix(u.Path, e.pathPrefix)
}

func (e *Extractor) matchesKeyword(link string) bool {
	lower := strings.ToLower(link)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	for _, k := range e.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func dedupe(links []string, keep func(string) bool) []string {
	seen := make(map[string]bool, len(links))
	out := []string{}
	for _, link := range links {
		if seen[link] || !keep(link) {
			continue
		}
		seen[link] = true
		out = append(out, link)
	}
	return out
}

// shouldSkipLink rejects non-navigable hrefs
func shouldSkipLink(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "data:", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
