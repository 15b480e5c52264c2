package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"BlogWatch/internal/domain"
	"BlogWatch/internal/fetch"
	"BlogWatch/internal/infrastructure/storage"
)

type stubStrategy struct {
	name       domain.FetchStrategy
	candidates map[string][]domain.Candidate
	err        error
}

func (s *stubStrategy) Name() domain.FetchStrategy { return s.name }

func (s *stubStrategy) Discover(_ context.Context, source domain.Source) ([]domain.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates[source.Name], nil
}

type stubExtractor struct {
	content string
	err     error
	calls   int
}

func (s *stubExtractor) Extract(_ context.Context, _ string) (string, string, error) {
	s.calls++
	if s.err != nil {
		return "", "", s.err
	}
	return "Extracted Title", s.content, nil
}

type stubEnricher struct {
	err   error
	calls int
}

func (s *stubEnricher) Enrich(_ context.Context, _, _ string) (string, string, error) {
	s.calls++
	if s.err != nil {
		return "", "", s.err
	}
	return "A summary.", "KEY TAKEAWAYS:\n- one", nil
}

func longContent() string {
	return strings.Repeat("Practical detection engineering guidance for analysts. ", 10)
}

func newTestRegistry(strategy fetch.Strategy) *fetch.Registry {
	registry := fetch.NewRegistry()
	registry.Register(strategy)
	return registry
}

func addFeedSource(t *testing.T, store *storage.MemoryStore, name string) {
	t.Helper()
	err := store.AddSource(context.Background(), domain.Source{
		Name:     name,
		URL:      "https://" + name + ".example.com",
		Strategy: domain.StrategyFeed,
		Active:   true,
	})
	require.NoError(t, err)
}

func TestPipelineRunIngestsAndEnriches(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	addFeedSource(t, store, "lab-blog")

	strategy := &stubStrategy{
		name: domain.StrategyFeed,
		candidates: map[string][]domain.Candidate{
			"lab-blog": {
				{URL: "https://lab-blog.example.com/a", Title: "Post A"},
				{URL: "https://lab-blog.example.com/b", Title: "Post B"},
			},
		},
	}
	enricher := &stubEnricher{}

	pipeline := NewPipeline(PipelineDeps{
		Registry:  newTestRegistry(strategy),
		Store:     store,
		Extractor: &stubExtractor{content: longContent()},
		Enricher:  enricher,
	})

	require.NoError(t, pipeline.Run(context.Background()))

	article, ok := store.ArticleByURL("https://lab-blog.example.com/a")
	require.True(t, ok)
	require.Equal(t, "Post A", article.Title)
	require.True(t, article.Processed)
	require.Equal(t, "A summary.", article.Summary)
	require.Equal(t, 2, enricher.calls)

	logs := store.RunLogs()
	require.Len(t, logs, 1)
	require.Equal(t, domain.RunSuccess, logs[0].Outcome)
	require.Equal(t, 2, logs[0].NewCount)
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	addFeedSource(t, store, "lab-blog")

	strategy := &stubStrategy{
		name: domain.StrategyFeed,
		candidates: map[string][]domain.Candidate{
			"lab-blog": {{URL: "https://lab-blog.example.com/a", Title: "Post A"}},
		},
	}
	ext := &stubExtractor{content: longContent()}
	enricher := &stubEnricher{}

	pipeline := NewPipeline(PipelineDeps{
		Registry:  newTestRegistry(strategy),
		Store:     store,
		Extractor: ext,
		Enricher:  enricher,
	})

	require.NoError(t, pipeline.Run(context.Background()))
	require.NoError(t, pipeline.Run(context.Background()))

	require.Equal(t, 1, ext.calls)
	require.Equal(t, 1, enricher.calls)

	logs := store.RunLogs()
	require.Len(t, logs, 2)
	require.Equal(t, domain.RunSuccess, logs[0].Outcome)
	require.Equal(t, domain.RunNoNewItems, logs[1].Outcome)
}

func TestPipelineShortContentSkipsEnrichment(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	addFeedSource(t, store, "lab-blog")

	strategy := &stubStrategy{
		name: domain.StrategyFeed,
		candidates: map[string][]domain.Candidate{
			"lab-blog": {{URL: "https://lab-blog.example.com/thin", Title: "Thin"}},
		},
	}
	enricher := &stubEnricher{}

	pipeline := NewPipeline(PipelineDeps{
		Registry:  newTestRegistry(strategy),
		Store:     store,
		Extractor: &stubExtractor{content: "barely anything here"},
		Enricher:  enricher,
	})

	require.NoError(t, pipeline.Run(context.Background()))

	article, ok := store.ArticleByURL("https://lab-blog.example.com/thin")
	require.True(t, ok)
	require.True(t, article.Processed)
	require.Empty(t, article.Summary)
	require.Zero(t, enricher.calls)
}

func TestPipelineRateLimitLeavesArticlePending(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	addFeedSource(t, store, "lab-blog")

	strategy := &stubStrategy{
		name: domain.StrategyFeed,
		candidates: map[string][]domain.Candidate{
			"lab-blog": {{URL: "https://lab-blog.example.com/a", Title: "Post A"}},
		},
	}
	enricher := &stubEnricher{err: &domain.EnrichmentError{
		Kind: domain.KindRateLimited,
		Err:  errors.New("429 too many requests"),
	}}

	pipeline := NewPipeline(PipelineDeps{
		Registry:  newTestRegistry(strategy),
		Store:     store,
		Extractor: &stubExtractor{content: longContent()},
		Enricher:  enricher,
	})

	require.NoError(t, pipeline.Run(context.Background()))

	article, ok := store.ArticleByURL("https://lab-blog.example.com/a")
	require.True(t, ok)
	require.False(t, article.Processed)
}

func TestPipelineTerminalFailureMarksProcessed(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	addFeedSource(t, store, "lab-blog")

	strategy := &stubStrategy{
		name: domain.StrategyFeed,
		candidates: map[string][]domain.Candidate{
			"lab-blog": {{URL: "https://lab-blog.example.com/a", Title: "Post A"}},
		},
	}
	enricher := &stubEnricher{err: &domain.EnrichmentError{
		Kind: domain.KindTerminal,
		Err:  errors.New("invalid request"),
	}}

	pipeline := NewPipeline(PipelineDeps{
		Registry:  newTestRegistry(strategy),
		Store:     store,
		Extractor: &stubExtractor{content: longContent()},
		Enricher:  enricher,
	})

	require.NoError(t, pipeline.Run(context.Background()))

	article, ok := store.ArticleByURL("https://lab-blog.example.com/a")
	require.True(t, ok)
	require.True(t, article.Processed)
	require.Empty(t, article.Summary)
}

func TestPipelineSourceFailureDoesNotAbortRun(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	addFeedSource(t, store, "broken-blog")
	addFeedSource(t, store, "healthy-blog")

	strategy := &flakyStrategy{
		failFor: "broken-blog",
		err:     errors.New("fetch page: connection refused"),
		candidates: map[string][]domain.Candidate{
			"healthy-blog": {{URL: "https://healthy-blog.example.com/a", Title: "Post A"}},
		},
	}

	pipeline := NewPipeline(PipelineDeps{
		Registry:  newTestRegistry(strategy),
		Store:     store,
		Extractor: &stubExtractor{content: longContent()},
		Enricher:  &stubEnricher{},
	})

	require.NoError(t, pipeline.Run(context.Background()))

	_, ok := store.ArticleByURL("https://healthy-blog.example.com/a")
	require.True(t, ok)

	logs := store.RunLogs()
	require.Len(t, logs, 2)
	require.Equal(t, domain.RunError, logs[0].Outcome)
	require.Equal(t, "broken-blog", logs[0].Source)
	require.Equal(t, domain.RunSuccess, logs[1].Outcome)
}

// flakyStrategy fails for one named source and serves candidates to the rest,
// so both test sources can share one registry slot.
type flakyStrategy struct {
	failFor    string
	err        error
	candidates map[string][]domain.Candidate
}

func (f *flakyStrategy) Name() domain.FetchStrategy { return domain.StrategyFeed }

func (f *flakyStrategy) Discover(_ context.Context, source domain.Source) ([]domain.Candidate, error) {
	if source.Name == f.failFor {
		return nil, f.err
	}
	return f.candidates[source.Name], nil
}

func TestPipelineUnknownStrategyLogsError(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.AddSource(context.Background(), domain.Source{
		Name:     "odd-blog",
		URL:      "https://odd-blog.example.com",
		Strategy: "scrape-everything",
		Active:   true,
	}))

	pipeline := NewPipeline(PipelineDeps{
		Registry:  fetch.NewRegistry(),
		Store:     store,
		Extractor: &stubExtractor{},
		Enricher:  &stubEnricher{},
	})

	require.NoError(t, pipeline.Run(context.Background()))

	logs := store.RunLogs()
	require.Len(t, logs, 1)
	require.Equal(t, domain.RunError, logs[0].Outcome)
	require.Contains(t, logs[0].Message, "not registered")
}
