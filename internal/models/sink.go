package models

// Sink names
const (
	SinkKnowledgeBase = "knowledge_base"
	SinkChat          = "chat"
	SinkEmail         = "email"
)

// SinkOutcome records the result of delivering a report to one sink
type SinkOutcome struct {
	SinkName  string `json:"sink"`
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"` // Page URL, message ID or recipient
	ID        string `json:"id,omitempty"`        // Page ID for follow-up updates
	Error     string `json:"error,omitempty"`
	Duration  int64  `json:"duration_ms"`
}

// PipelineResult is the aggregate outcome of one pipeline invocation
type PipelineResult struct {
	RunID            string           `json:"run_id"`
	Success          bool             `json:"success"`
	ReportTitle      string           `json:"report_title"`
	KnowledgeBaseURL string           `json:"knowledge_base_url,omitempty"`
	Outcomes         []SinkOutcome    `json:"sinks"`
	Report           *CanonicalReport `json:"-"`
}

// Outcome returns the outcome for sink name, if that sink ran
func (r *PipelineResult) Outcome(name string) (SinkOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.SinkName == name {
			return o, true
		}
	}
	return SinkOutcome{}, false
}

// Delivered reports whether sink name ran and succeeded
func (r *PipelineResult) Delivered(name string) bool {
	o, ok := r.Outcome(name)
	return ok && o.Success
}
