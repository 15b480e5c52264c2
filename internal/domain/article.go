package domain

import "time"

// Article is the core persisted entity. The URL is the dedup key: a second
// insert with the same URL is a no-op, never an error.
type Article struct {
	ID          int64
	Title       string
	URL         string
	Source      string
	Content     string
	Summary     string
	Insights    string
	PublishedAt *time.Time
	IngestedAt  time.Time
	Processed   bool
	Notified    bool
}

// Candidate is a discovered article reference prior to extraction. Title and
// PublishedAt are best-effort; link-discovery strategies supply neither.
type Candidate struct {
	URL         string
	Title       string
	PublishedAt *time.Time
}
