package models

// ScrapeResult is the outcome of one authenticated page fetch.
// Success=false carries only URL and Error.
type ScrapeResult struct {
	Success     bool     `json:"success"`
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	HTMLContent string   `json:"html_content,omitempty"`
	TextContent string   `json:"text_content,omitempty"`
	Images      []string `json:"images,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// FailedScrape builds a failed result for url
func FailedScrape(url, msg string) ScrapeResult {
	return ScrapeResult{Success: false, URL: url, Error: msg}
}

// NormalizedContent is the cleaned view of a scraped page
type NormalizedContent struct {
	Title       string `json:"title"`
	MainContent string `json:"main_content"`
	WordCount   int    `json:"word_count"`
	Markdown    string `json:"markdown"`
	SafeHTML    string `json:"safe_html"`
}
