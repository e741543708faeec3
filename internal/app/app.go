package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/handlers"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/pipeline"
	"github.com/ternarybob/reportrelay/internal/services/content"
	"github.com/ternarybob/reportrelay/internal/services/extractor"
	"github.com/ternarybob/reportrelay/internal/services/imap"
	"github.com/ternarybob/reportrelay/internal/services/llm"
	"github.com/ternarybob/reportrelay/internal/services/mailer"
	"github.com/ternarybob/reportrelay/internal/services/notion"
	"github.com/ternarybob/reportrelay/internal/services/pdf"
	"github.com/ternarybob/reportrelay/internal/services/report"
	"github.com/ternarybob/reportrelay/internal/services/scheduler"
	"github.com/ternarybob/reportrelay/internal/services/scraper"
	"github.com/ternarybob/reportrelay/internal/services/sinks"
	"github.com/ternarybob/reportrelay/internal/services/telegram"
	"github.com/ternarybob/reportrelay/internal/storage/badger"
)

// PollJobName is the scheduler name of the mailbox poll job
const PollJobName = "imap_poll"

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB         *badger.BadgerDB
	RunStorage *badger.RunStorage

	// Clients
	LLMProviders *llm.ProviderFactory
	Notion       *notion.Client
	Telegram     *telegram.Client
	Mailer       *mailer.Service
	PDF          *pdf.Service
	IMAP         *imap.Service

	// Pipeline
	Analyzer  *llm.Engine
	FanOut    *sinks.FanOut
	Pipeline  *pipeline.Pipeline
	Scheduler *scheduler.Service

	// HTTP handlers
	WebhookHandler  *handlers.WebhookHandler
	AnalysisHandler *handlers.AnalysisHandler
	StatusHandler   *handlers.StatusHandler
	RunsHandler     *handlers.RunsHandler // nil when history is disabled
}

// New initializes the application. Clients are constructed once here and
// injected; disabled sinks are left out of the fan-out.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initScheduler(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Bool("notion_enabled", cfg.Notion.Enabled).
		Bool("telegram_enabled", cfg.Telegram.Enabled).
		Bool("email_enabled", cfg.Email.Enabled).
		Bool("imap_enabled", cfg.IMAP.Enabled).
		Bool("history_enabled", cfg.History.Enabled).
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the run history store when history is enabled
func (a *App) initStorage() error {
	if !a.Config.History.Enabled {
		a.Logger.Debug().Msg("Run history disabled")
		return nil
	}

	db, err := badger.Open(a.Config.Storage.Badger, a.Logger)
	if err != nil {
		return err
	}
	a.DB = db
	a.RunStorage = badger.NewRunStorage(db, a.Logger)
	return nil
}

func (a *App) initServices() error {
	cfg := a.Config

	a.LLMProviders = llm.NewProviderFactory(cfg, a.Logger)
	a.Analyzer = llm.NewEngine(a.LLMProviders, cfg.LLM, a.Logger)

	var kbSink, chatSink, emailSink sinks.Sink
	var notifier pipeline.ErrorNotifier

	if cfg.Notion.Enabled {
		a.Notion = notion.NewClient(cfg.Notion, a.Logger)
		kbSink = sinks.NewKnowledgeBaseSink(a.Notion, cfg.Notion.Status, cfg.Notion.DoneStatus, a.Logger)
	}

	if cfg.Telegram.Enabled {
		a.Telegram = telegram.NewClient(cfg.Telegram, a.Logger)
		chatSink = sinks.NewChatSink(a.Telegram, cfg.Telegram.Insights, a.Logger)
		notifier = sinks.NewChatErrorNotifier(a.Telegram, a.Logger)
	}

	if cfg.Email.Enabled {
		a.Mailer = mailer.NewService(cfg.Email, a.Logger)
		a.PDF = pdf.NewService(a.Logger)
		emailSink = sinks.NewEmailSink(a.Mailer, a.PDF, cfg.Email, a.Logger)
	}

	a.FanOut = sinks.NewFanOut(kbSink, chatSink, emailSink, a.Logger)

	deps := pipeline.Dependencies{
		Extractor:  extractor.NewExtractor(cfg.Source, a.Logger),
		Fetcher:    scraper.NewFetcher(cfg.Source, a.Logger),
		Normalizer: content.NewNormalizer(a.Logger),
		Analyzer:   a.Analyzer,
		Assembler:  report.NewAssembler(),
		Sinks:      a.FanOut,
		Notifier:   notifier,
	}
	if a.RunStorage != nil {
		deps.Recorder = a.RunStorage
	}

	a.Pipeline = pipeline.New(deps, cfg.Source.MinContentWords, a.Logger)
	return nil
}

// initScheduler registers the mailbox poll job when the poller is enabled
func (a *App) initScheduler() error {
	a.Scheduler = scheduler.NewService(a.Logger)

	if !a.Config.IMAP.Enabled {
		return nil
	}

	a.IMAP = imap.NewService(a.Config.IMAP, a.Logger)
	if err := a.Scheduler.RegisterJob(PollJobName, a.Config.IMAP.Schedule, a.pollMailbox); err != nil {
		return err
	}
	a.Scheduler.Start()
	return nil
}

// pollMailbox feeds matching unseen messages through the pipeline
func (a *App) pollMailbox(ctx context.Context) error {
	processed, err := a.IMAP.Poll(ctx, a.processMailboxMessage)
	if err != nil {
		return err
	}
	if processed > 0 {
		a.Logger.Info().Int("processed", processed).Msg("Mailbox poll completed")
	}
	return nil
}

// processMailboxMessage runs the pipeline for one message. A message with no
// report link is consumed; acquisition and configuration failures leave it
// unseen for the next poll.
func (a *App) processMailboxMessage(ctx context.Context, n models.InboundNotification) error {
	_, err := a.Pipeline.Run(ctx, n)
	if errors.Is(err, pipeline.ErrNoReportURL) {
		return nil
	}
	return err
}

func (a *App) initHandlers() {
	a.WebhookHandler = handlers.NewWebhookHandler(a.Pipeline, a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.Analyzer, a.Logger)

	var jobNames []string
	if a.IMAP != nil {
		jobNames = append(jobNames, PollJobName)
	}
	a.StatusHandler = handlers.NewStatusHandler(a.Scheduler, jobNames, a.Logger)

	if a.RunStorage != nil {
		a.RunsHandler = handlers.NewRunsHandler(a.RunStorage, a.Config.History.Limit, a.Logger)
	}
}

// Close releases background jobs, clients and storage
func (a *App) Close() error {
	if a.Scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.Scheduler.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
		cancel()
	}

	if a.LLMProviders != nil {
		if err := a.LLMProviders.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
