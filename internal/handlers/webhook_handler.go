package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/pipeline"
	"github.com/ternarybob/reportrelay/internal/services/sinks"
)

// PipelineRunner runs the report pipeline
type PipelineRunner interface {
	Run(ctx context.Context, n models.InboundNotification) (*models.PipelineResult, error)
	RunURL(ctx context.Context, url string, opts sinks.Options) (*models.PipelineResult, error)
}

// WebhookRequest is the inbound email payload. body_html and body are
// accepted as aliases of email_html and email_text.
type WebhookRequest struct {
	Subject   string `json:"subject"`
	EmailHTML string `json:"email_html"`
	EmailText string `json:"email_text"`
	BodyHTML  string `json:"body_html"`
	Body      string `json:"body"`
	SkipChat  bool   `json:"skip_chat"`
	SkipEmail bool   `json:"skip_email"`
}

// Notification converts the request to a pipeline notification
func (req WebhookRequest) Notification() models.InboundNotification {
	return models.InboundNotification{
		Subject:   req.Subject,
		HTMLBody:  firstNonEmpty(req.EmailHTML, req.BodyHTML),
		TextBody:  firstNonEmpty(req.EmailText, req.Body),
		SkipChat:  req.SkipChat,
		SkipEmail: req.SkipEmail,
		Source:    "webhook",
	}
}

// ScrapeRequest is the body of POST /scrape
type ScrapeRequest struct {
	URL       string `json:"url"`
	SkipChat  bool   `json:"skip_chat"`
	SkipEmail bool   `json:"skip_email"`
}

// PipelineResponse summarises a successful run
type PipelineResponse struct {
	Status           string               `json:"status"`
	RunID            string               `json:"run_id"`
	ReportTitle      string               `json:"report_title"`
	KnowledgeBaseURL string               `json:"knowledge_base_url,omitempty"`
	NotionSaved      bool                 `json:"notion_saved"`
	TelegramSent     bool                 `json:"telegram_sent"`
	EmailSent        bool                 `json:"email_sent"`
	Sinks            []models.SinkOutcome `json:"sinks"`
	WordCount        int                  `json:"word_count"`
	ConfidenceLevel  string               `json:"confidence_level"`
	OriginalLanguage string               `json:"original_language"`
}

// NewPipelineResponse builds the response summary for a result
func NewPipelineResponse(result *models.PipelineResult) PipelineResponse {
	resp := PipelineResponse{
		Status:           "success",
		RunID:            result.RunID,
		ReportTitle:      result.ReportTitle,
		KnowledgeBaseURL: result.KnowledgeBaseURL,
		NotionSaved:      result.Delivered(models.SinkKnowledgeBase),
		TelegramSent:     result.Delivered(models.SinkChat),
		EmailSent:        result.Delivered(models.SinkEmail),
		Sinks:            result.Outcomes,
	}
	if resp.Sinks == nil {
		resp.Sinks = []models.SinkOutcome{}
	}
	if r := result.Report; r != nil {
		resp.WordCount = r.Metadata.WordCount
		resp.ConfidenceLevel = r.Analysis.ConfidenceLevel
		resp.OriginalLanguage = r.Analysis.OriginalLanguage
	}
	return resp
}

// WebhookHandler serves the report webhook and the direct scrape endpoint
type WebhookHandler struct {
	pipeline PipelineRunner
	logger   arbor.ILogger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(pipeline PipelineRunner, logger arbor.ILogger) *WebhookHandler {
	return &WebhookHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// MarketReportHandler handles POST /webhook/market-report
func (h *WebhookHandler) MarketReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req WebhookRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	h.logger.Info().
		Str("subject", req.Subject).
		Bool("skip_chat", req.SkipChat).
		Bool("skip_email", req.SkipEmail).
		Msg("Received market report webhook")

	result, err := h.pipeline.Run(r.Context(), req.Notification())
	h.respond(w, result, err)
}

// ScrapeHandler handles POST /scrape
func (h *WebhookHandler) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ScrapeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		WriteError(w, http.StatusBadRequest, "A valid http(s) url is required")
		return
	}

	result, err := h.pipeline.RunURL(r.Context(), req.URL, sinks.Options{SkipChat: req.SkipChat, SkipEmail: req.SkipEmail})
	h.respond(w, result, err)
}

// respond maps pipeline errors to status codes: 400 no URL, 503
// configuration, 500 acquisition or unexpected failure
func (h *WebhookHandler) respond(w http.ResponseWriter, result *models.PipelineResult, err error) {
	if err == nil {
		WriteJSON(w, http.StatusOK, NewPipelineResponse(result))
		return
	}

	var acqErr *pipeline.AcquisitionError
	switch {
	case errors.Is(err, pipeline.ErrNoReportURL):
		WriteError(w, http.StatusBadRequest, "No report URL found in email")
	case errors.Is(err, common.ErrConfiguration):
		WriteError(w, http.StatusServiceUnavailable, "Service not configured: "+err.Error())
	case errors.As(err, &acqErr):
		WriteError(w, http.StatusInternalServerError, "Failed to scrape report: "+acqErr.Message)
	default:
		h.logger.Error().Err(err).Msg("Pipeline failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
