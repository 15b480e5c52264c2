package domain

import "time"

// FetchStrategy selects how candidates are discovered for a source.
type FetchStrategy string

const (
	StrategyFeed          FetchStrategy = "feed"
	StrategyLinkDiscovery FetchStrategy = "link-discovery"
)

// Source is a monitored blog. Sources are created by a management surface
// and never auto-deleted; the pipeline only updates LastRun.
type Source struct {
	ID       int64
	Name     string
	URL      string
	FeedURL  string
	Strategy FetchStrategy
	Active   bool
	LastRun  *time.Time
}

// RunOutcome classifies a single fetch attempt against one source.
type RunOutcome string

const (
	RunSuccess    RunOutcome = "success"
	RunError      RunOutcome = "error"
	RunNoNewItems RunOutcome = "no-new-items"
)

// RunLogEntry records the result of one fetcher invocation for one source.
// Entries are immutable once written and pruned by age.
type RunLogEntry struct {
	ID       int64
	Source   string
	Outcome  RunOutcome
	Message  string
	NewCount int
	At       time.Time
}

// NotificationSettings is the per-channel delivery configuration, a single
// row read once per dispatch pass.
type NotificationSettings struct {
	EmailEnabled bool
	EmailAddress string
	ChatEnabled  bool
	ChatNumber   string
}
