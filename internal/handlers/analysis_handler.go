package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/models"
)

// defaultTestContent is analyzed when POST /test-ai carries no content
const defaultTestContent = "Test content for AI processing"

// Analyzer runs the analysis engine alone
type Analyzer interface {
	Analyze(ctx context.Context, content string) models.AnalysisResult
}

// AnalysisHandler exposes the analysis engine for diagnostics
type AnalysisHandler struct {
	analyzer Analyzer
	logger   arbor.ILogger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(analyzer Analyzer, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		logger:   logger,
	}
}

// TestAIHandler handles POST /test-ai
func (h *AnalysisHandler) TestAIHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := DecodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		req.Content = defaultTestContent
	}

	result := h.analyzer.Analyze(r.Context(), req.Content)
	h.logger.Info().
		Str("tier", result.Metadata.Tier).
		Str("confidence", result.ConfidenceLevel).
		Msg("Test analysis completed")

	WriteJSON(w, http.StatusOK, result)
}
