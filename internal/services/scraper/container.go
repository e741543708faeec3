package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// processContainer removes script elements from the captured container HTML
// and returns it with the absolute URLs of every image it references
func processContainer(innerHTML, pageURL string) (string, []string) {
	if strings.TrimSpace(innerHTML) == "" {
		return "", []string{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div id=\"report-root\">" + innerHTML + "</div>"))
	if err != nil {
		return innerHTML, []string{}
	}

	root := doc.Find("#report-root")
	root.Find("script").Remove()

	base, _ := url.Parse(pageURL)
	images := []string{}
	seen := map[string]bool{}
	root.Find("img").Each(func(i int, s *goquery.Selection) {
		src := imageSource(s)
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			return
		}
		resolved := resolve(base, src)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		images = append(images, resolved)
	})

	cleaned, err := root.Html()
	if err != nil {
		return innerHTML, images
	}
	return strings.TrimSpace(cleaned), images
}

// imageSource prefers lazy-load attributes used by WordPress themes
func imageSource(s *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-lazy-src", "src"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return ""
	}
	return u.String()
}
