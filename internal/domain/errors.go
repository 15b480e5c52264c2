package domain

import "fmt"

// FailureKind classifies an enrichment failure. The kind is assigned by the
// call site that observed the upstream response, not inferred later from
// error text.
type FailureKind int

const (
	// KindTerminal covers auth failures, malformed requests and parse
	// exhaustion. The article is marked processed so it is never retried.
	KindTerminal FailureKind = iota
	// KindRateLimited covers HTTP 429 responses. The article stays
	// unprocessed and is retried on a later run.
	KindRateLimited
	// KindTransport covers network-level failures reaching the provider.
	KindTransport
)

func (k FailureKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate-limited"
	case KindTransport:
		return "transport"
	default:
		return "terminal"
	}
}

// EnrichmentError carries the failure classification for an enrichment call.
type EnrichmentError struct {
	Kind     FailureKind
	Provider string
	Model    string
	Err      error
}

func (e *EnrichmentError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("enrichment %s (%s/%s): %v", e.Kind, e.Provider, e.Model, e.Err)
	}
	return fmt.Sprintf("enrichment %s: %v", e.Kind, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// Retryable reports whether the article should stay eligible for a later
// enrichment attempt.
func (e *EnrichmentError) Retryable() bool { return e.Kind == KindRateLimited }
