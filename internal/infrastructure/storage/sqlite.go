package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"BlogWatch/internal/domain"
	"BlogWatch/internal/ports"
)

// Open opens (or creates) the SQLite database at path and bootstraps the
// schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	url TEXT UNIQUE NOT NULL,
	source TEXT NOT NULL,
	content TEXT,
	summary TEXT,
	insights TEXT,
	published_at DATETIME,
	ingested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	processed BOOLEAN NOT NULL DEFAULT 0,
	notified BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	url TEXT NOT NULL,
	feed_url TEXT,
	strategy TEXT NOT NULL DEFAULT 'feed',
	active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_run DATETIME
);

CREATE TABLE IF NOT EXISTS run_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	outcome TEXT NOT NULL,
	message TEXT,
	new_count INTEGER NOT NULL DEFAULT 0,
	at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notification_settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	email_enabled BOOLEAN NOT NULL DEFAULT 0,
	email_address TEXT,
	chat_enabled BOOLEAN NOT NULL DEFAULT 0,
	chat_number TEXT
);
`

// SQLiteStore is the production ports.Store implementation.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.Store = (*SQLiteStore)(nil)

// NewSQLiteStore wires an opened database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Exists reports whether an article with the given URL is already stored.
func (s *SQLiteStore) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := sq.Select("1").From("articles").Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return true, nil
}

// InsertArticle persists a new article. A conflicting URL makes the insert a
// no-op and returns false.
func (s *SQLiteStore) InsertArticle(ctx context.Context, article domain.Article) (bool, error) {
	ingested := article.IngestedAt
	if ingested.IsZero() {
		ingested = time.Now().UTC()
	}

	query, args, err := sq.Insert("articles").
		Columns("title", "url", "source", "content", "published_at", "ingested_at").
		Values(article.Title, article.URL, article.Source, nullString(article.Content), nullTime(article.PublishedAt), ingested).
		Suffix("ON CONFLICT(url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// UnprocessedArticles returns all articles still awaiting an enrichment
// attempt, oldest first.
func (s *SQLiteStore) UnprocessedArticles(ctx context.Context) ([]domain.Article, error) {
	return s.queryArticles(ctx, sq.Eq{"processed": false}, "ingested_at ASC")
}

// MarkProcessed records the enrichment outcome. The processed flag only ever
// moves false to true.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, id int64, summary, insights string) error {
	query, args, err := sq.Update("articles").
		Set("summary", nullString(summary)).
		Set("insights", nullString(insights)).
		Set("processed", true).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark processed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// ArticlesToNotify returns processed, not-yet-notified articles ordered
// most-recent-first.
func (s *SQLiteStore) ArticlesToNotify(ctx context.Context) ([]domain.Article, error) {
	return s.queryArticles(ctx, sq.Eq{"processed": true, "notified": false}, "ingested_at DESC")
}

// MarkNotified flips the notified flag. The processed guard keeps the
// invariant that notified never becomes true before processed.
func (s *SQLiteStore) MarkNotified(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sq.Update("articles").
		Set("notified", true).
		Where(sq.Eq{"id": ids, "processed": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark notified: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// ActiveSources returns all sources eligible for the next run.
func (s *SQLiteStore) ActiveSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := sq.Select("id", "name", "url", "feed_url", "strategy", "active", "last_run").
		From("sources").
		Where(sq.Eq{"active": true}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			src     domain.Source
			feedURL sql.NullString
			lastRun sql.NullTime
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &feedURL, &src.Strategy, &src.Active, &lastRun); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.FeedURL = feedURL.String
		if lastRun.Valid {
			t := lastRun.Time
			src.LastRun = &t
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return sources, nil
}

// CountSources returns the number of registered sources, active or not.
func (s *SQLiteStore) CountSources(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count); err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	return count, nil
}

// AddSource registers a new monitored source.
func (s *SQLiteStore) AddSource(ctx context.Context, source domain.Source) error {
	query, args, err := sq.Insert("sources").
		Columns("name", "url", "feed_url", "strategy", "active").
		Values(source.Name, source.URL, nullString(source.FeedURL), string(source.Strategy), source.Active).
		ToSql()
	if err != nil {
		return fmt.Errorf("build add source: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add source: %w", err)
	}
	return nil
}

// TouchSource stamps the source's last fetch attempt.
func (s *SQLiteStore) TouchSource(ctx context.Context, id int64, at time.Time) error {
	query, args, err := sq.Update("sources").Set("last_run", at).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build touch source: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch source: %w", err)
	}
	return nil
}

// AddRunLog appends one immutable run log entry.
func (s *SQLiteStore) AddRunLog(ctx context.Context, entry domain.RunLogEntry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	query, args, err := sq.Insert("run_logs").
		Columns("source", "outcome", "message", "new_count", "at").
		Values(entry.Source, string(entry.Outcome), entry.Message, entry.NewCount, at).
		ToSql()
	if err != nil {
		return fmt.Errorf("build add run log: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add run log: %w", err)
	}
	return nil
}

// PruneRunLogs deletes entries older than the cutoff and reports how many
// rows went away.
func (s *SQLiteStore) PruneRunLogs(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := sq.Delete("run_logs").Where(sq.Lt{"at": before}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune run logs: %w", err)
	}

	return result.RowsAffected()
}

// Settings reads the singleton notification settings row. A missing row
// yields zero-value settings (all channels disabled).
func (s *SQLiteStore) Settings(ctx context.Context) (domain.NotificationSettings, error) {
	var (
		settings domain.NotificationSettings
		email    sql.NullString
		chat     sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT email_enabled, email_address, chat_enabled, chat_number FROM notification_settings WHERE id = 1").
		Scan(&settings.EmailEnabled, &email, &settings.ChatEnabled, &chat)
	if err == sql.ErrNoRows {
		return domain.NotificationSettings{}, nil
	}
	if err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("query settings: %w", err)
	}

	settings.EmailAddress = email.String
	settings.ChatNumber = chat.String
	return settings, nil
}

// SaveSettings upserts the singleton settings row.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings domain.NotificationSettings) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO notification_settings (id, email_enabled, email_address, chat_enabled, chat_number)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	email_enabled = excluded.email_enabled,
	email_address = excluded.email_address,
	chat_enabled = excluded.chat_enabled,
	chat_number = excluded.chat_number`,
		settings.EmailEnabled, nullString(settings.EmailAddress), settings.ChatEnabled, nullString(settings.ChatNumber))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryArticles(ctx context.Context, where sq.Eq, order string) ([]domain.Article, error) {
	query, args, err := sq.Select("id", "title", "url", "source", "content", "summary", "insights",
		"published_at", "ingested_at", "processed", "notified").
		From("articles").
		Where(where).
		OrderBy(order).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			art       domain.Article
			content   sql.NullString
			summary   sql.NullString
			insights  sql.NullString
			published sql.NullTime
		)
		err := rows.Scan(&art.ID, &art.Title, &art.URL, &art.Source, &content, &summary, &insights,
			&published, &art.IngestedAt, &art.Processed, &art.Notified)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		art.Content = content.String
		art.Summary = summary.String
		art.Insights = insights.String
		if published.Valid {
			t := published.Time
			art.PublishedAt = &t
		}
		articles = append(articles, art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
