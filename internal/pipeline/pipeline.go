package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/services/sinks"
)

// Stage names used for run timings
const (
	PhaseExtract   = "extract"
	PhaseFetch     = "fetch"
	PhaseNormalize = "normalize"
	PhaseAnalyze   = "analyze"
	PhaseDeliver   = "deliver"
)

// URLExtractor picks the report link out of an email body
type URLExtractor interface {
	First(htmlBody, textBody string) string
}

// PageFetcher retrieves a report page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (models.ScrapeResult, error)
}

// ContentNormalizer cleans fetched HTML
type ContentNormalizer interface {
	Normalize(rawHTML, baseURL string) models.NormalizedContent
}

// Analyzer produces the structured analysis of report text
type Analyzer interface {
	Analyze(ctx context.Context, content string) models.AnalysisResult
}

// ReportAssembler merges stage outputs into the canonical report
type ReportAssembler interface {
	Assemble(scrape models.ScrapeResult, normalized models.NormalizedContent, analysis models.AnalysisResult, subject string) *models.CanonicalReport
}

// Deliverer fans a report out to the sinks
type Deliverer interface {
	Deliver(ctx context.Context, report *models.CanonicalReport, opts sinks.Options) []models.SinkOutcome
}

// ErrorNotifier reports processing failures out of band
type ErrorNotifier interface {
	NotifyError(ctx context.Context, errMsg, detail string)
}

// RunRecorder persists run summaries
type RunRecorder interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
}

// Dependencies wires the pipeline stages. Notifier and Recorder are optional.
type Dependencies struct {
	Extractor  URLExtractor
	Fetcher    PageFetcher
	Normalizer ContentNormalizer
	Analyzer   Analyzer
	Assembler  ReportAssembler
	Sinks      Deliverer
	Notifier   ErrorNotifier
	Recorder   RunRecorder
}

// Pipeline runs notification → extraction → fetch → normalization →
// analysis → assembly → fan-out, one stage at a time
type Pipeline struct {
	deps            Dependencies
	minContentWords int
	logger          arbor.ILogger
	newID           func() string
}

// New creates a pipeline. minContentWords below 1 disables the short-content guard.
func New(deps Dependencies, minContentWords int, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		deps:            deps,
		minContentWords: minContentWords,
		logger:          logger,
		newID:           func() string { return uuid.New().String() },
	}
}

// Run processes one inbound notification. The returned error is one of
// ErrNoReportURL, an *AcquisitionError or ErrUnexpected; sink failures are
// reported in the result only.
func (p *Pipeline) Run(ctx context.Context, n models.InboundNotification) (*models.PipelineResult, error) {
	run := p.startRun(n.Source, n.Subject)
	logger := p.logger.WithCorrelationId(run.ID)

	started := time.Now()
	url := p.deps.Extractor.First(n.HTMLBody, n.TextBody)
	run.Phases[PhaseExtract] = time.Since(started).Milliseconds()

	if url == "" {
		logger.Warn().Str("subject", n.Subject).Msg("No report URL found in notification")
		p.finishRun(ctx, run, models.RunStatusNoURL, ErrNoReportURL)
		return nil, ErrNoReportURL
	}

	logger.Info().Str("url", url).Str("subject", n.Subject).Msg("Report URL extracted")
	return p.process(ctx, run, logger, url, n.Subject, sinks.Options{SkipChat: n.SkipChat, SkipEmail: n.SkipEmail})
}

// RunURL processes a known report URL, skipping extraction
func (p *Pipeline) RunURL(ctx context.Context, url string, opts sinks.Options) (*models.PipelineResult, error) {
	run := p.startRun("scrape", "")
	logger := p.logger.WithCorrelationId(run.ID)
	return p.process(ctx, run, logger, url, "", opts)
}

func (p *Pipeline) process(
	ctx context.Context,
	run *models.RunRecord,
	logger arbor.ILogger,
	url, subject string,
	opts sinks.Options,
) (result *models.PipelineResult, err error) {
	run.URL = url

	report, err := p.acquireAndAnalyze(ctx, run, logger, url, subject)
	if err != nil {
		status := models.RunStatusFailed
		switch {
		case errors.Is(err, common.ErrConfiguration):
			status = models.RunStatusConfig
		case ctx.Err() != nil:
			status = models.RunStatusCancelled
		}
		p.finishRun(ctx, run, status, err)
		return nil, err
	}

	started := time.Now()
	outcomes := p.deps.Sinks.Deliver(ctx, report, opts)
	run.Phases[PhaseDeliver] = time.Since(started).Milliseconds()

	result = &models.PipelineResult{
		RunID:       run.ID,
		Success:     true,
		ReportTitle: report.Metadata.Title,
		Outcomes:    outcomes,
		Report:      report,
	}
	if kb, ok := result.Outcome(models.SinkKnowledgeBase); ok && kb.Success {
		result.KnowledgeBaseURL = kb.Reference
	}

	run.Title = report.Metadata.Title
	run.WordCount = report.Metadata.WordCount
	run.ConfidenceLevel = report.Analysis.ConfidenceLevel
	run.AnalysisTier = report.Analysis.Metadata.Tier
	run.KnowledgeBaseURL = result.KnowledgeBaseURL
	run.Outcomes = outcomes
	p.finishRun(ctx, run, models.RunStatusSuccess, nil)

	logger.Info().
		Str("title", report.Metadata.Title).
		Str("confidence", report.Analysis.ConfidenceLevel).
		Int("sinks", len(outcomes)).
		Int64("total_ms", run.TotalMs).
		Msg("Pipeline completed")

	return result, nil
}

// acquireAndAnalyze runs the stages whose failure aborts the run. Panics are
// converted to ErrUnexpected and reported like acquisition failures.
func (p *Pipeline) acquireAndAnalyze(
	ctx context.Context,
	run *models.RunRecord,
	logger arbor.ILogger,
	url, subject string,
) (report *models.CanonicalReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("PANIC RECOVERED in pipeline")
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
			report = nil
			p.notify(ctx, err.Error(), "processing: "+url)
		}
	}()

	started := time.Now()
	scrape, fetchErr := p.deps.Fetcher.Fetch(ctx, url)
	run.Phases[PhaseFetch] = time.Since(started).Milliseconds()

	if fetchErr != nil || !scrape.Success {
		acqErr := &AcquisitionError{URL: url, Message: scrape.Error, Err: fetchErr}
		if acqErr.Message == "" && fetchErr != nil {
			acqErr.Message = fetchErr.Error()
		}
		if acqErr.Message == "" {
			acqErr.Message = "unknown error"
		}
		logger.Error().Err(fetchErr).Str("url", url).Str("reason", acqErr.Message).Msg("Report acquisition failed")
		p.notify(ctx, acqErr.Message, "acquisition: "+url)
		return nil, acqErr
	}

	started = time.Now()
	normalized := p.deps.Normalizer.Normalize(scrape.HTMLContent, scrape.URL)
	content := normalized.MainContent
	if content == "" {
		content = strings.TrimSpace(scrape.TextContent)
		normalized.WordCount = len(strings.Fields(content))
	}
	run.Phases[PhaseNormalize] = time.Since(started).Milliseconds()

	if p.minContentWords > 0 && normalized.WordCount < p.minContentWords {
		acqErr := &AcquisitionError{URL: url, Message: ErrContentTooShort.Error(), Err: ErrContentTooShort}
		logger.Warn().
			Int("word_count", normalized.WordCount).
			Int("min_words", p.minContentWords).
			Str("url", url).
			Msg("Report content too short")
		p.notify(ctx, acqErr.Message, "normalization: "+url)
		return nil, acqErr
	}

	started = time.Now()
	analysis := p.deps.Analyzer.Analyze(ctx, content)
	run.Phases[PhaseAnalyze] = time.Since(started).Milliseconds()

	if analysis.IsDegraded() {
		logger.Warn().
			Str("tier", analysis.Metadata.Tier).
			Str("error", analysis.Metadata.Error).
			Msg("Analysis degraded")
	}

	return p.deps.Assembler.Assemble(scrape, normalized, analysis, subject), nil
}

func (p *Pipeline) notify(ctx context.Context, errMsg, detail string) {
	if p.deps.Notifier == nil {
		return
	}
	p.deps.Notifier.NotifyError(context.WithoutCancel(ctx), errMsg, detail)
}

func (p *Pipeline) startRun(source, subject string) *models.RunRecord {
	if source == "" {
		source = "webhook"
	}
	return &models.RunRecord{
		ID:        p.newID(),
		Source:    source,
		Subject:   subject,
		Phases:    make(map[string]int64),
		StartedAt: time.Now().UTC(),
	}
}

func (p *Pipeline) finishRun(ctx context.Context, run *models.RunRecord, status string, err error) {
	run.Status = status
	if err != nil {
		run.Error = err.Error()
	}
	run.CompletedAt = time.Now().UTC()
	run.TotalMs = run.CompletedAt.Sub(run.StartedAt).Milliseconds()

	if p.deps.Recorder == nil {
		return
	}
	if saveErr := p.deps.Recorder.SaveRun(context.WithoutCancel(ctx), run); saveErr != nil {
		p.logger.Warn().Err(saveErr).Str("run_id", run.ID).Msg("Failed to save run record")
	}
}
