package storage

import (
	"context"
	"sync"
	"time"

	"BlogWatch/internal/domain"
	"BlogWatch/internal/ports"
)

// MemoryStore is an in-memory ports.Store used by tests and dry runs. It
// upholds the same invariants as the SQLite store: URL uniqueness on insert
// and the processed-before-notified guard.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	articles []*domain.Article
	byURL    map[string]*domain.Article
	sources  []*domain.Source
	runLogs  []domain.RunLogEntry
	settings domain.NotificationSettings
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byURL: map[string]*domain.Article{}}
}

func (m *MemoryStore) Exists(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byURL[url]
	return ok, nil
}

func (m *MemoryStore) InsertArticle(_ context.Context, article domain.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byURL[article.URL]; ok {
		return false, nil
	}

	m.nextID++
	article.ID = m.nextID
	if article.IngestedAt.IsZero() {
		article.IngestedAt = time.Now().UTC()
	}
	stored := article
	m.articles = append(m.articles, &stored)
	m.byURL[stored.URL] = &stored
	return true, nil
}

func (m *MemoryStore) UnprocessedArticles(_ context.Context) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Article
	for _, art := range m.articles {
		if !art.Processed {
			out = append(out, *art)
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkProcessed(_ context.Context, id int64, summary, insights string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, art := range m.articles {
		if art.ID == id {
			art.Summary = summary
			art.Insights = insights
			art.Processed = true
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) ArticlesToNotify(_ context.Context) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Article
	for i := len(m.articles) - 1; i >= 0; i-- {
		art := m.articles[i]
		if art.Processed && !art.Notified {
			out = append(out, *art)
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkNotified(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := map[int64]struct{}{}
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	for _, art := range m.articles {
		if _, ok := wanted[art.ID]; ok && art.Processed {
			art.Notified = true
		}
	}
	return nil
}

func (m *MemoryStore) ActiveSources(_ context.Context) ([]domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Source
	for _, src := range m.sources {
		if src.Active {
			out = append(out, *src)
		}
	}
	return out, nil
}

func (m *MemoryStore) CountSources(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources), nil
}

func (m *MemoryStore) AddSource(_ context.Context, source domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source.ID = int64(len(m.sources) + 1)
	stored := source
	m.sources = append(m.sources, &stored)
	return nil
}

func (m *MemoryStore) TouchSource(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, src := range m.sources {
		if src.ID == id {
			t := at
			src.LastRun = &t
		}
	}
	return nil
}

func (m *MemoryStore) AddRunLog(_ context.Context, entry domain.RunLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = int64(len(m.runLogs) + 1)
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	m.runLogs = append(m.runLogs, entry)
	return nil
}

func (m *MemoryStore) PruneRunLogs(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []domain.RunLogEntry
	var removed int64
	for _, entry := range m.runLogs {
		if entry.At.Before(before) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	m.runLogs = kept
	return removed, nil
}

func (m *MemoryStore) Settings(_ context.Context) (domain.NotificationSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, settings domain.NotificationSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	return nil
}

// RunLogs returns a copy of all log entries, oldest first. Test helper.
func (m *MemoryStore) RunLogs() []domain.RunLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RunLogEntry, len(m.runLogs))
	copy(out, m.runLogs)
	return out
}

// ArticleByURL returns a snapshot of a stored article. Test helper.
func (m *MemoryStore) ArticleByURL(url string) (domain.Article, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if art, ok := m.byURL[url]; ok {
		return *art, true
	}
	return domain.Article{}, false
}
