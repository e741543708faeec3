package models

import "time"

// DefaultReportTitle is used when neither the page nor the notification has a title
const DefaultReportTitle = "Market Report"

// ReportMetadata identifies a canonical report
type ReportMetadata struct {
	Title     string    `json:"title"`
	WordCount int       `json:"word_count"`
	Timestamp time.Time `json:"timestamp"`
	SourceURL string    `json:"source_url"`
}

// ReportContent carries the report body in every representation the sinks use
type ReportContent struct {
	OriginalText      string   `json:"original_text"`
	TranslatedContent string   `json:"translated_content"`
	OriginalHTML      string   `json:"original_html"`
	SafeHTML          string   `json:"safe_html"` // Sanitized original for display sinks
	Markdown          string   `json:"markdown"`
	Images            []string `json:"images"`
}

// CanonicalReport is the single record delivered to every sink
type CanonicalReport struct {
	Metadata ReportMetadata `json:"metadata"`
	Content  ReportContent  `json:"content"`
	Analysis AnalysisResult `json:"analysis"`
}
