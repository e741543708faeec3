package models

// InboundNotification is the email-derived payload that references a report.
// It is created per webhook call or per polled mailbox message.
type InboundNotification struct {
	Subject   string `json:"subject"`
	HTMLBody  string `json:"email_html"`
	TextBody  string `json:"email_text"`
	SkipChat  bool   `json:"skip_chat"`
	SkipEmail bool   `json:"skip_email"`
	Source    string `json:"source,omitempty"` // "webhook", "imap", "scrape"
}

// HasBody reports whether either body variant carries content
func (n InboundNotification) HasBody() bool {
	return n.HTMLBody != "" || n.TextBody != ""
}
