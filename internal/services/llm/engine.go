package llm

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
)

// Placeholders for list fields of degraded results
const (
	PlaceholderUnparsed    = models.PlaceholderUnparsed
	PlaceholderUnavailable = models.PlaceholderUnavailable
)

// summaryPreviewLength is the number of reply runes kept as the summary of an unparsed reply
const summaryPreviewLength = 500

// Generator produces model text for a content request
type Generator interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
}

// Engine turns report text into a fully shaped AnalysisResult with a
// single model request. It never returns an error: failures degrade to
// lower tiers recorded in Metadata.Tier.
type Engine struct {
	generator Generator
	config    common.LLMConfig
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewEngine creates an analysis engine backed by generator
func NewEngine(generator Generator, config common.LLMConfig, logger arbor.ILogger) *Engine {
	return &Engine{
		generator: generator,
		config:    config,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Analyze translates and analyzes content
func (e *Engine) Analyze(ctx context.Context, content string) models.AnalysisResult {
	started := time.Now()
	truncated, wasCut := Truncate(content, e.config.MaxContentLength)

	meta := models.AnalysisMetadata{
		Model:         e.config.Model,
		ContentLength: utf8.RuneCountInString(content),
		Truncated:     wasCut,
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	resp, err := e.generator.GenerateContent(ctx, &ContentRequest{
		Messages:          []Message{{Role: RoleUser, Content: BuildPrompt(truncated)}},
		Model:             e.config.Model,
		Temperature:       e.config.Temperature,
		MaxTokens:         e.config.MaxTokens,
		SystemInstruction: SystemPrompt,
		JSONOutput:        true,
	})
	if err != nil {
		e.logger.Error().Err(err).
			Int("content_length", meta.ContentLength).
			Dur("duration", time.Since(started)).
			Msg("AI processing failed, using fallback analysis")
		return e.fallbackResult(truncated, err, meta)
	}

	meta.Model = resp.Model
	meta.Provider = string(resp.Provider)

	raw, err := parseReply(resp.Text)
	if err != nil {
		e.logger.Warn().
			Str("provider", meta.Provider).
			Int("reply_length", len(resp.Text)).
			Msg("AI returned non-JSON response, using raw reply")
		return e.unparsedResult(resp.Text, meta)
	}

	if missing := missingKeys(raw); len(missing) > 0 {
		e.logger.Warn().Strs("missing_keys", missing).Msg("AI reply missing keys, filling defaults")
	}

	meta.Tier = models.TierModel
	result := models.NewAnalysisResult(raw, models.AnalysisDefaults{
		Placeholder: models.PlaceholderMissing,
		Metadata:    meta,
	})

	if err := e.validate.Struct(result); err != nil {
		e.logger.Warn().Err(err).Msg("AI reply failed shape validation, using raw reply")
		return e.unparsedResult(resp.Text, meta)
	}

	e.logger.Info().
		Str("provider", meta.Provider).
		Str("model", meta.Model).
		Str("language", result.OriginalLanguage).
		Str("confidence", result.ConfidenceLevel).
		Bool("truncated", meta.Truncated).
		Dur("duration", time.Since(started)).
		Msg("AI processing completed")

	return result
}

// unparsedResult builds the degraded result for a reply that is not JSON
func (e *Engine) unparsedResult(reply string, meta models.AnalysisMetadata) models.AnalysisResult {
	meta.Tier = models.TierUnparsed
	return models.NewAnalysisResult(nil, models.AnalysisDefaults{
		OriginalLanguage:   "Unknown",
		TranslatedContent:  reply,
		Summary:            preview(reply, summaryPreviewLength),
		Outlook:            "Please review full analysis",
		Confidence:         models.ConfidenceLow,
		Placeholder:        PlaceholderUnparsed,
		MetricsPlaceholder: PlaceholderUnparsed,
		Metadata:           meta,
	})
}

// fallbackResult builds the degraded result when the request itself failed
func (e *Engine) fallbackResult(content string, err error, meta models.AnalysisMetadata) models.AnalysisResult {
	meta.Tier = models.TierFallback
	meta.Error = err.Error()
	return models.NewAnalysisResult(nil, models.AnalysisDefaults{
		OriginalLanguage:   "Unknown",
		TranslatedContent:  content,
		Summary:            fmt.Sprintf("Processing failed: %s. Original content preview: %s", err.Error(), preview(content, 300)),
		Outlook:            "Processing failed",
		Confidence:         models.ConfidenceError,
		Placeholder:        PlaceholderUnavailable,
		MetricsPlaceholder: PlaceholderUnavailable,
		Metadata:           meta,
	})
}
