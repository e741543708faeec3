package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/models"
)

// Refs carries references produced by earlier sinks in the same fan-out
type Refs struct {
	KnowledgeBaseURL string
}

// Receipt identifies what a sink created
type Receipt struct {
	Reference string
	ID        string
}

// Sink delivers a canonical report to one destination
type Sink interface {
	Name() string
	Deliver(ctx context.Context, report *models.CanonicalReport, refs Refs) (Receipt, error)
}

// StatusMarker is implemented by sinks whose records carry a processing status
type StatusMarker interface {
	MarkProcessed(ctx context.Context, id string) error
}

// Options toggles sinks for one delivery
type Options struct {
	SkipChat  bool
	SkipEmail bool
}

// FanOut delivers a report to the knowledge-base, chat and email sinks in
// that order. A nil sink is disabled and not reported.
type FanOut struct {
	knowledgeBase Sink
	chat          Sink
	email         Sink
	logger        arbor.ILogger
}

// NewFanOut creates a fan-out over the given sinks; any may be nil
func NewFanOut(knowledgeBase, chat, email Sink, logger arbor.ILogger) *FanOut {
	return &FanOut{
		knowledgeBase: knowledgeBase,
		chat:          chat,
		email:         email,
		logger:        logger,
	}
}

// Deliver runs every enabled sink and returns one outcome per sink that ran.
// It never fails; sink errors and panics become unsuccessful outcomes.
func (f *FanOut) Deliver(ctx context.Context, report *models.CanonicalReport, opts Options) []models.SinkOutcome {
	outcomes := make([]models.SinkOutcome, 0, 3)
	var refs Refs

	var kb models.SinkOutcome
	if f.knowledgeBase != nil {
		kb = deliverSafely(ctx, f.knowledgeBase, report, refs, f.logger)
		if kb.Success {
			refs.KnowledgeBaseURL = kb.Reference
		}
		outcomes = append(outcomes, kb)
	}

	chatDelivered := false
	if f.chat != nil && !opts.SkipChat {
		o := deliverSafely(ctx, f.chat, report, refs, f.logger)
		chatDelivered = o.Success
		outcomes = append(outcomes, o)
	}

	if f.email != nil && !opts.SkipEmail {
		outcomes = append(outcomes, deliverSafely(ctx, f.email, report, refs, f.logger))
	}

	// The page keeps its initial status unless the chat notification went out
	if kb.Success && chatDelivered {
		f.markProcessed(ctx, kb.ID)
	}

	return outcomes
}

func (f *FanOut) markProcessed(ctx context.Context, id string) {
	marker, ok := f.knowledgeBase.(StatusMarker)
	if !ok || id == "" {
		return
	}
	if err := marker.MarkProcessed(ctx, id); err != nil {
		f.logger.Warn().Err(err).Str("page_id", id).Msg("Failed to update knowledge-base status")
	}
}

// deliverSafely runs one sink, converting errors and panics into a failed outcome
func deliverSafely(ctx context.Context, sink Sink, report *models.CanonicalReport, refs Refs, logger arbor.ILogger) (outcome models.SinkOutcome) {
	start := time.Now()
	outcome.SinkName = sink.Name()

	defer func() {
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Error = logRecovered(logger, outcome.SinkName, r)
		}
		outcome.Duration = time.Since(start).Milliseconds()
	}()

	receipt, err := sink.Deliver(ctx, report, refs)
	if err != nil {
		outcome.Error = err.Error()
		logger.Warn().Err(err).Str("sink", outcome.SinkName).Msg("Sink delivery failed")
		return outcome
	}

	outcome.Success = true
	outcome.Reference = receipt.Reference
	outcome.ID = receipt.ID
	logger.Info().
		Str("sink", outcome.SinkName).
		Str("reference", receipt.Reference).
		Dur("duration", time.Since(start)).
		Msg("Sink delivery succeeded")
	return outcome
}

// logRecovered logs a panic raised by a sink and returns it as an error message
func logRecovered(logger arbor.ILogger, sink string, r interface{}) string {
	logger.Error().
		Str("sink", sink).
		Str("panic", fmt.Sprintf("%v", r)).
		Msg("PANIC RECOVERED in sink delivery")
	return fmt.Sprintf("panic: %v", r)
}
