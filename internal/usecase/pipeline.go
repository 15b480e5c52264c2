package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"BlogWatch/internal/domain"
	"BlogWatch/internal/fetch"
	"BlogWatch/internal/infrastructure/extractor"
	"BlogWatch/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry   *fetch.Registry
	Store      ports.Store
	Extractor  ports.Extractor
	Enricher   ports.Enricher
	Dispatcher *Dispatcher
	Logger     *slog.Logger

	// SourceDelay and EnrichDelay are explicit backpressure against
	// upstream rate limits; zero disables the pauses (tests do this).
	SourceDelay     time.Duration
	EnrichDelay     time.Duration
	MinEnrichLength int
}

// Pipeline implements the article ingestion-enrichment-notification
// workflow. Failures are caught at the smallest unit (per source, per
// article, per channel) so a partial run still advances overall progress.
type Pipeline struct {
	registry   *fetch.Registry
	store      ports.Store
	extractor  ports.Extractor
	enricher   ports.Enricher
	dispatcher *Dispatcher
	logger     *slog.Logger

	sourceDelay     time.Duration
	enrichDelay     time.Duration
	minEnrichLength int

	running atomic.Bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	minEnrich := deps.MinEnrichLength
	if minEnrich <= 0 {
		minEnrich = 200
	}
	return &Pipeline{
		registry:        deps.Registry,
		store:           deps.Store,
		extractor:       deps.Extractor,
		enricher:        deps.Enricher,
		dispatcher:      deps.Dispatcher,
		logger:          deps.Logger,
		sourceDelay:     deps.SourceDelay,
		enrichDelay:     deps.EnrichDelay,
		minEnrichLength: minEnrich,
	}
}

// Run executes one complete pipeline pass: discover and persist candidates
// per source, enrich everything still pending, then dispatch once if any
// article gained a summary. A trigger firing while a run is active returns
// immediately; scheduling discipline assumes one run at a time and the flag
// keeps that advisory.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		p.warn("pipeline run already in progress, skipping trigger")
		return nil
	}
	defer p.running.Store(false)

	sources, err := p.store.ActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	p.info("pipeline run started", "sources", len(sources))

	totalNew := 0
	for _, source := range sources {
		totalNew += p.processSource(ctx, source)

		if err := p.store.TouchSource(ctx, source.ID, time.Now().UTC()); err != nil {
			p.warn("touch source failed", "source", source.Name, "error", err)
		}
		p.pause(ctx, p.sourceDelay)
	}

	enriched := p.enrichPending(ctx)
	p.info("pipeline run finished", "new_articles", totalNew, "enriched", enriched)

	if enriched > 0 && p.dispatcher != nil {
		if _, err := p.dispatcher.Dispatch(ctx); err != nil {
			p.warn("dispatch failed", "error", err)
		}
	}

	return nil
}

// processSource runs one source's discovery and persistence, records a run
// log entry, and never lets a source failure abort the overall run.
func (p *Pipeline) processSource(ctx context.Context, source domain.Source) int {
	strategy, err := p.registry.Resolve(source.Strategy)
	if err != nil {
		p.logRun(ctx, source.Name, domain.RunError, err.Error(), 0)
		return 0
	}

	candidates, err := strategy.Discover(ctx, source)
	if err != nil {
		p.warn("discovery failed", "source", source.Name, "error", err)
		p.logRun(ctx, source.Name, domain.RunError, err.Error(), 0)
		return 0
	}

	saved := 0
	for _, candidate := range candidates {
		if p.ingestCandidate(ctx, source, candidate) {
			saved++
		}
	}

	outcome := domain.RunNoNewItems
	message := "no new articles"
	if saved > 0 {
		outcome = domain.RunSuccess
		message = fmt.Sprintf("found %d new articles", saved)
	}
	p.logRun(ctx, source.Name, outcome, message, saved)

	return saved
}

// ingestCandidate extracts and persists one candidate. The store stays the
// sole authority on uniqueness: the check-then-insert shortcut only avoids a
// pointless extraction, the insert itself is idempotent on URL.
func (p *Pipeline) ingestCandidate(ctx context.Context, source domain.Source, candidate domain.Candidate) bool {
	exists, err := p.store.Exists(ctx, candidate.URL)
	if err != nil {
		p.warn("existence check failed", "url", candidate.URL, "error", err)
		return false
	}
	if exists {
		return false
	}

	pageTitle, content, err := p.extractor.Extract(ctx, candidate.URL)
	if err != nil {
		p.debug("candidate dropped", "url", candidate.URL, "reason", err)
		return false
	}

	title := candidate.Title
	if title == "" {
		title = pageTitle
	}
	if title == "" {
		title = extractor.TitleFromContent(content)
	}
	if title == "" {
		title = extractor.TitleFromURL(candidate.URL)
	}

	inserted, err := p.store.InsertArticle(ctx, domain.Article{
		Title:       title,
		URL:         candidate.URL,
		Source:      source.Name,
		Content:     content,
		PublishedAt: candidate.PublishedAt,
		IngestedAt:  time.Now().UTC(),
	})
	if err != nil {
		p.warn("insert failed", "url", candidate.URL, "error", err)
		return false
	}
	if inserted {
		p.info("article saved", "source", source.Name, "title", title)
	}
	return inserted
}

// enrichPending walks every unprocessed article and resolves its processed
// flag: success and terminal failures both flip it, rate limits leave it
// unset for the next run. Returns how many articles gained a summary.
func (p *Pipeline) enrichPending(ctx context.Context) int {
	articles, err := p.store.UnprocessedArticles(ctx)
	if err != nil {
		p.warn("load unprocessed articles failed", "error", err)
		return 0
	}

	enriched := 0
	for _, article := range articles {
		if len(strings.TrimSpace(article.Content)) < p.minEnrichLength {
			p.warn("content too short to enrich", "title", article.Title)
			if err := p.store.MarkProcessed(ctx, article.ID, "", ""); err != nil {
				p.warn("mark processed failed", "id", article.ID, "error", err)
			}
			continue
		}

		summary, insights, err := p.enricher.Enrich(ctx, article.Title, article.Content)
		if err != nil {
			var enrichErr *domain.EnrichmentError
			if errors.As(err, &enrichErr) && enrichErr.Retryable() {
				p.warn("enrichment rate limited, will retry next run", "title", article.Title)
			} else {
				p.warn("enrichment failed terminally", "title", article.Title, "error", err)
				if markErr := p.store.MarkProcessed(ctx, article.ID, "", ""); markErr != nil {
					p.warn("mark processed failed", "id", article.ID, "error", markErr)
				}
			}
		} else {
			if markErr := p.store.MarkProcessed(ctx, article.ID, summary, insights); markErr != nil {
				p.warn("mark processed failed", "id", article.ID, "error", markErr)
			} else {
				enriched++
				p.info("article enriched", "title", article.Title)
			}
		}

		p.pause(ctx, p.enrichDelay)
	}

	return enriched
}

func (p *Pipeline) logRun(ctx context.Context, source string, outcome domain.RunOutcome, message string, count int) {
	entry := domain.RunLogEntry{
		Source:   source,
		Outcome:  outcome,
		Message:  message,
		NewCount: count,
		At:       time.Now().UTC(),
	}
	if err := p.store.AddRunLog(ctx, entry); err != nil {
		p.warn("run log write failed", "source", source, "error", err)
	}
}

func (p *Pipeline) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
