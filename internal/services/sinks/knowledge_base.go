package sinks

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/services/notion"
)

// PageStore creates and updates knowledge-base pages
type PageStore interface {
	CreatePage(ctx context.Context, properties map[string]notion.Property, children []notion.Block) (*notion.Page, error)
	UpdatePageStatus(ctx context.Context, pageID, status string) error
}

// KnowledgeBaseSink records each report as a Notion database page
type KnowledgeBaseSink struct {
	pages      PageStore
	status     string
	doneStatus string
	logger     arbor.ILogger
}

// NewKnowledgeBaseSink creates the knowledge-base sink. New pages get status;
// MarkProcessed moves them to doneStatus.
func NewKnowledgeBaseSink(pages PageStore, status, doneStatus string, logger arbor.ILogger) *KnowledgeBaseSink {
	return &KnowledgeBaseSink{
		pages:      pages,
		status:     status,
		doneStatus: doneStatus,
		logger:     logger,
	}
}

// Name implements Sink
func (s *KnowledgeBaseSink) Name() string {
	return models.SinkKnowledgeBase
}

// Deliver implements Sink
func (s *KnowledgeBaseSink) Deliver(ctx context.Context, report *models.CanonicalReport, _ Refs) (Receipt, error) {
	page, err := s.pages.CreatePage(ctx, notion.BuildProperties(report, s.status), notion.BuildBlocks(report))
	if err != nil {
		return Receipt{}, err
	}
	if page.URL == "" {
		return Receipt{}, errors.New("knowledge base returned a page without a URL")
	}
	return Receipt{Reference: page.URL, ID: page.ID}, nil
}

// MarkProcessed implements StatusMarker
func (s *KnowledgeBaseSink) MarkProcessed(ctx context.Context, id string) error {
	if s.doneStatus == "" {
		return nil
	}
	return s.pages.UpdatePageStatus(ctx, id, s.doneStatus)
}
