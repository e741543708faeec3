package sinks

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/services/mailer"
	"github.com/ternarybob/reportrelay/internal/services/pdf"
	"github.com/yuin/goldmark"
)

// MailSender delivers a composed email
type MailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// PDFRenderer renders markdown as a PDF document
type PDFRenderer interface {
	Render(markdown, title string) ([]byte, error)
}

const timestampLayout = "2006-01-02 15:04 MST"

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9]+`)

// EmailSink sends the styled report digest to one recipient
type EmailSink struct {
	sender   MailSender
	renderer PDFRenderer // nil disables the attachment
	config   common.EmailConfig
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

// NewEmailSink creates the email sink. renderer may be nil.
func NewEmailSink(sender MailSender, renderer PDFRenderer, config common.EmailConfig, logger arbor.ILogger) *EmailSink {
	if !config.AttachPDF {
		renderer = nil
	}
	return &EmailSink{
		sender:   sender,
		renderer: renderer,
		config:   config,
		markdown: goldmark.New(),
		logger:   logger,
	}
}

// Name implements Sink
func (s *EmailSink) Name() string {
	return models.SinkEmail
}

// Deliver implements Sink
func (s *EmailSink) Deliver(ctx context.Context, report *models.CanonicalReport, _ Refs) (Receipt, error) {
	htmlBody, err := s.HTMLBody(report)
	if err != nil {
		return Receipt{}, err
	}

	msg := mailer.Message{
		To:       s.config.Recipient,
		Subject:  s.Subject(report),
		HTMLBody: htmlBody,
		TextBody: TextBody(report),
	}

	if s.renderer != nil {
		if att, err := s.attachment(report); err != nil {
			// The digest still goes out without the PDF
			s.logger.Warn().Err(err).Msg("Failed to render PDF attachment")
		} else {
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return Receipt{}, err
	}
	return Receipt{Reference: s.config.Recipient}, nil
}

// Subject builds "<prefix>: <title>"
func (s *EmailSink) Subject(report *models.CanonicalReport) string {
	prefix := s.config.SubjectPrefix
	if prefix == "" {
		prefix = models.DefaultReportTitle
	}
	return prefix + ": " + report.Metadata.Title
}

// HTMLBody renders the styled HTML digest
func (s *EmailSink) HTMLBody(report *models.CanonicalReport) (string, error) {
	a := report.Analysis

	translated, err := s.renderMarkdown(a.TranslatedContent)
	if err != nil {
		return "", err
	}

	view := emailView{
		Title:          report.Metadata.Title,
		SourceURL:      report.Metadata.SourceURL,
		Processed:      processed(report),
		Sentiment:      titleCase(a.MarketMetrics.MarketSentiment),
		Confidence:     a.ConfidenceLevel,
		Summary:        orFallback(a.Summary, "Summary not available"),
		Insights:       a.KeyInsights,
		Outlook:        a.Outlook,
		Risks:          a.RiskFactors,
		Actions:        a.ActionItems,
		OriginalHTML:   template.HTML(report.Content.SafeHTML),
		TranslatedHTML: template.HTML(translated),
		Footer:         footerText,
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return buf.String(), nil
}

// TextBody renders the plain-text alternative
func TextBody(report *models.CanonicalReport) string {
	a := report.Analysis
	rule := strings.Repeat("=", 50)

	var b strings.Builder
	fmt.Fprintf(&b, "MARKET REPORT: %s\n%s\n\n", report.Metadata.Title, rule)
	if report.Metadata.SourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n", report.Metadata.SourceURL)
	}
	fmt.Fprintf(&b, "Processed: %s\n\n", processed(report))

	textSection(&b, "EXECUTIVE SUMMARY", orFallback(a.Summary, "Summary not available"))
	textList(&b, "KEY INSIGHTS", a.KeyInsights)
	textSection(&b, "MARKET OUTLOOK", a.Outlook)
	textList(&b, "RISK FACTORS", a.RiskFactors)
	textList(&b, "ACTION ITEMS", a.ActionItems)

	fmt.Fprintf(&b, "\n%s\n%s", rule, footerText)
	return b.String()
}

// ReportMarkdown is the document rendered into the PDF attachment
func ReportMarkdown(report *models.CanonicalReport) string {
	a := report.Analysis

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", report.Metadata.Title)
	if report.Metadata.SourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n\n", report.Metadata.SourceURL)
	}
	fmt.Fprintf(&b, "Processed: %s\n\n", processed(report))
	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", a.Summary)
	markdownList(&b, "Key Insights", a.KeyInsights)
	if a.Outlook != "" {
		fmt.Fprintf(&b, "## Market Outlook\n\n%s\n\n", a.Outlook)
	}
	markdownList(&b, "Risk Factors", a.RiskFactors)
	markdownList(&b, "Action Items", a.ActionItems)
	b.WriteString("---\n\n## Full Report (Translated)\n\n")
	b.WriteString(a.TranslatedContent)
	b.WriteString("\n")
	return b.String()
}

func (s *EmailSink) attachment(report *models.CanonicalReport) (mailer.Attachment, error) {
	data, err := s.renderer.Render(ReportMarkdown(report), report.Metadata.Title)
	if err != nil {
		return mailer.Attachment{}, err
	}

	if info, err := pdf.Inspect(data); err == nil {
		s.logger.Debug().Int("pages", info.PageCount).Int("size", info.Size).Msg("PDF attachment rendered")
	}

	return mailer.Attachment{
		Filename:    AttachmentName(report.Metadata.Title),
		ContentType: "application/pdf",
		Content:     data,
	}, nil
}

// AttachmentName derives a file name from the report title
func AttachmentName(title string) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(title, "-"), "-")
	if name == "" {
		name = "market-report"
	}
	if len(name) > 80 {
		name = strings.TrimRight(name[:80], "-")
	}
	return strings.ToLower(name) + ".pdf"
}

func (s *EmailSink) renderMarkdown(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render translated content: %w", err)
	}
	return buf.String(), nil
}

func textSection(b *strings.Builder, heading, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "%s\n%s\n%s\n\n", heading, strings.Repeat("-", 20), body)
}

func textList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n%s\n", heading, strings.Repeat("-", 20))
	for _, item := range items {
		fmt.Fprintf(b, "• %s\n", item)
	}
	b.WriteString("\n")
}

func markdownList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func processed(report *models.CanonicalReport) string {
	if report.Metadata.Timestamp.IsZero() {
		return "Just now"
	}
	return report.Metadata.Timestamp.Format(timestampLayout)
}

func orFallback(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
