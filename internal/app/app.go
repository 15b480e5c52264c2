package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"BlogWatch/internal/config"
	"BlogWatch/internal/domain"
	"BlogWatch/internal/enrich"
	"BlogWatch/internal/fetch"
	"BlogWatch/internal/infrastructure/email"
	"BlogWatch/internal/infrastructure/extractor"
	"BlogWatch/internal/infrastructure/fetcher"
	"BlogWatch/internal/infrastructure/llm"
	"BlogWatch/internal/infrastructure/scheduler"
	"BlogWatch/internal/infrastructure/storage"
	"BlogWatch/internal/infrastructure/twilio"
	"BlogWatch/internal/logging"
	"BlogWatch/internal/ports"
	"BlogWatch/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	db        *sql.DB
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	logger    *slog.Logger
}

// New builds a runnable application instance. Absent credentials disable the
// related capability with a log line instead of failing the start.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	store := storage.NewSQLiteStore(db)

	ctx := context.Background()
	if err := seedSources(ctx, store, cfg.Sources); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed sources: %w", err)
	}
	if err := seedSettings(ctx, store, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	registry := fetch.NewRegistry()
	registry.Register(fetcher.NewFeedStrategy(nil, baseLogger.With("component", "fetcher.feed")))
	registry.Register(fetcher.NewLinkStrategy(nil, baseLogger.With("component", "fetcher.links")))

	completers := map[string]ports.ChatCompleter{}
	if cfg.Enrichment.Anthropic.APIKey != "" {
		client := llm.NewAnthropicClient(cfg.Enrichment.Anthropic)
		completers[client.Provider()] = client
	} else {
		baseLogger.Warn("anthropic API key missing, provider disabled")
	}
	if cfg.Enrichment.OpenAI.APIKey != "" {
		client := llm.NewOpenAIClient(cfg.Enrichment.OpenAI)
		completers[client.Provider()] = client
	} else {
		baseLogger.Warn("openai API key missing, provider disabled")
	}

	candidates := make([]enrich.Candidate, 0, len(cfg.Enrichment.Candidates))
	for _, c := range cfg.Enrichment.Candidates {
		candidates = append(candidates, enrich.Candidate{Provider: c.Provider, Model: c.Model})
	}
	engine := enrich.NewEngine(completers, candidates, cfg.Enrichment.MaxContentLength,
		cfg.Enrichment.SystemPrompt, baseLogger.With("component", "enrich"))

	var emailSender ports.EmailSender
	if cfg.Email.Address != "" && cfg.Email.Password != "" {
		emailSender = email.NewSender(cfg.Email)
	} else {
		baseLogger.Warn("email credentials missing, email channel disabled")
	}

	var chatSender ports.ChatSender
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		chatSender = twilio.NewNotifier(cfg.Twilio)
	} else {
		baseLogger.Warn("twilio credentials missing, chat channel disabled")
	}

	dispatcher := usecase.NewDispatcher(store, emailSender, chatSender, baseLogger.With("component", "dispatcher"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:        registry,
		Store:           store,
		Extractor:       extractor.New(nil, baseLogger.With("component", "extractor")),
		Enricher:        engine,
		Dispatcher:      dispatcher,
		Logger:          baseLogger.With("component", "pipeline"),
		SourceDelay:     time.Duration(cfg.Pipeline.SourceDelaySeconds) * time.Second,
		EnrichDelay:     time.Duration(cfg.Pipeline.EnrichDelaySeconds) * time.Second,
		MinEnrichLength: cfg.Pipeline.MinEnrichLength,
	})

	driver := scheduler.New(cfg.Scheduler.Location())
	retention := time.Duration(cfg.Scheduler.LogRetentionDays) * 24 * time.Hour
	sched := usecase.NewScheduler(driver, pipeline, store,
		cfg.Scheduler.CronExpression, cfg.Scheduler.CleanupExpression, retention,
		baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:       cfg,
		db:        db,
		pipeline:  pipeline,
		scheduler: sched,
		logger:    baseLogger,
	}, nil
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) error {
	return a.pipeline.Run(ctx)
}

// Start begins the recurring schedule.
func (a *Application) Start(ctx context.Context) error {
	return a.scheduler.Start(ctx)
}

// Stop tears down the scheduler, waiting for a running job.
func (a *Application) Stop(ctx context.Context) error {
	return a.scheduler.Stop(ctx)
}

// Close releases the database handle.
func (a *Application) Close() error {
	return a.db.Close()
}

// seedSources registers the configured sources when the registry is empty,
// so a fresh install monitors something out of the box.
func seedSources(ctx context.Context, store ports.Store, sources []config.SourceConfig) error {
	count, err := store.CountSources(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, src := range sources {
		strategy := domain.FetchStrategy(src.Strategy)
		if strategy != domain.StrategyFeed && strategy != domain.StrategyLinkDiscovery {
			strategy = domain.StrategyFeed
		}
		err := store.AddSource(ctx, domain.Source{
			Name:     src.Name,
			URL:      src.URL,
			FeedURL:  src.FeedURL,
			Strategy: strategy,
			Active:   true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// seedSettings initializes the singleton notification settings row from the
// configured credentials; a management surface owns it afterwards.
func seedSettings(ctx context.Context, store ports.Store, cfg config.Config) error {
	current, err := store.Settings(ctx)
	if err != nil {
		return err
	}
	if current != (domain.NotificationSettings{}) {
		return nil
	}

	// The chat destination has no configuration default; the management
	// surface enables that channel once a recipient number is known.
	return store.SaveSettings(ctx, domain.NotificationSettings{
		EmailEnabled: cfg.Email.Address != "",
		EmailAddress: cfg.Email.Address,
	})
}
