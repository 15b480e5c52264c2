package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"BlogWatch/internal/domain"
	"BlogWatch/internal/fetch"
)

// FeedStrategy discovers candidates from a source's RSS/Atom feed.
type FeedStrategy struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ fetch.Strategy = (*FeedStrategy)(nil)

// NewFeedStrategy wires a gofeed parser; a nil client gets a 30s timeout.
func NewFeedStrategy(client *http.Client, log *slog.Logger) *FeedStrategy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &FeedStrategy{parser: parser, logger: log}
}

// Name identifies the strategy inside the registry.
func (f *FeedStrategy) Name() domain.FetchStrategy {
	return domain.StrategyFeed
}

// Discover parses the source's feed and returns the first entries in feed
// order, capped at fetch.MaxCandidatesPerSource. Publication timestamps come
// from feed metadata when present.
func (f *FeedStrategy) Discover(ctx context.Context, source domain.Source) ([]domain.Candidate, error) {
	feedURL := source.FeedURL
	if feedURL == "" {
		feedURL = source.URL
	}

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	f.debug("feed parsed", "source", source.Name, "entries", len(feed.Items))

	candidates := make([]domain.Candidate, 0, fetch.MaxCandidatesPerSource)
	for _, item := range feed.Items {
		if len(candidates) >= fetch.MaxCandidatesPerSource {
			break
		}
		if item.Link == "" {
			continue
		}

		candidate := domain.Candidate{
			URL:   item.Link,
			Title: item.Title,
		}
		if item.PublishedParsed != nil {
			published := item.PublishedParsed.UTC()
			candidate.PublishedAt = &published
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func (f *FeedStrategy) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
