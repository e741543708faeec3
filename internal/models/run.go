package models

import "time"

// Run statuses
const (
	RunStatusSuccess   = "success"
	RunStatusNoURL     = "no_url"
	RunStatusFailed    = "failed"
	RunStatusConfig    = "config_error"
	RunStatusCancelled = "cancelled"
)

// RunRecord is the persisted summary of one pipeline invocation
type RunRecord struct {
	ID               string           `json:"id"`
	Source           string           `json:"source"` // webhook, imap, scrape
	Subject          string           `json:"subject,omitempty"`
	URL              string           `json:"url,omitempty"`
	Title            string           `json:"title,omitempty"`
	Status           string           `json:"status"`
	Error            string           `json:"error,omitempty"`
	WordCount        int              `json:"word_count"`
	ConfidenceLevel  string           `json:"confidence_level,omitempty"`
	AnalysisTier     string           `json:"analysis_tier,omitempty"`
	KnowledgeBaseURL string           `json:"knowledge_base_url,omitempty"`
	Outcomes         []SinkOutcome    `json:"sinks,omitempty"`
	Phases           map[string]int64 `json:"phases,omitempty"` // Stage durations in ms
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      time.Time        `json:"completed_at"`
	TotalMs          int64            `json:"total_ms"`
}
