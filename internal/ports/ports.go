package ports

import (
	"context"
	"time"

	"BlogWatch/internal/domain"
)

// Store is the single source of truth for article existence and lifecycle
// flags. Every mutating operation runs in its own transaction.
type Store interface {
	Exists(ctx context.Context, url string) (bool, error)
	// InsertArticle persists a new article. It returns false when a
	// pre-existing row with the same URL blocked the insert, which callers
	// treat as success.
	InsertArticle(ctx context.Context, article domain.Article) (bool, error)
	UnprocessedArticles(ctx context.Context) ([]domain.Article, error)
	MarkProcessed(ctx context.Context, id int64, summary, insights string) error
	// ArticlesToNotify returns processed, not-yet-notified articles ordered
	// most-recent-first.
	ArticlesToNotify(ctx context.Context) ([]domain.Article, error)
	MarkNotified(ctx context.Context, ids []int64) error

	ActiveSources(ctx context.Context) ([]domain.Source, error)
	CountSources(ctx context.Context) (int, error)
	AddSource(ctx context.Context, source domain.Source) error
	TouchSource(ctx context.Context, id int64, at time.Time) error

	AddRunLog(ctx context.Context, entry domain.RunLogEntry) error
	PruneRunLogs(ctx context.Context, before time.Time) (int64, error)

	Settings(ctx context.Context) (domain.NotificationSettings, error)
	SaveSettings(ctx context.Context, settings domain.NotificationSettings) error
}

// Extractor reduces a page to its main textual content. A page that yields
// no usable text returns an error and the candidate is dropped.
type Extractor interface {
	Extract(ctx context.Context, url string) (title, content string, err error)
}

// Enricher turns raw article text into a structured summary. Failures carry
// a domain.EnrichmentError so callers can tell retryable from terminal.
type Enricher interface {
	Enrich(ctx context.Context, title, content string) (summary, insights string, err error)
}

// ChatCompleter is a single text-generation provider.
type ChatCompleter interface {
	Provider() string
	Complete(ctx context.Context, model, system, prompt string) (string, error)
}

// EmailSender delivers one HTML digest message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ChatSender delivers one plain-text digest to a chat destination.
type ChatSender interface {
	Send(ctx context.Context, to, message string) error
}

// Scheduler drives recurring jobs; the pipeline itself never schedules.
type Scheduler interface {
	Schedule(spec string, job func()) error
	Start()
	Stop(ctx context.Context) error
}
