package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"BlogWatch/internal/domain"
	"BlogWatch/internal/ports"
)

// truncationMarker is appended when article content exceeds the cap.
const truncationMarker = "\n\n[Article content truncated for processing]"

const defaultSystemPrompt = "You are a senior cybersecurity consultant who specializes in analyzing " +
	"technical articles and extracting actionable insights for cybersecurity analysts. " +
	"Always provide comprehensive, detailed analysis in valid JSON format."

// Candidate names one (provider, model) pair in fallback order.
type Candidate struct {
	Provider string
	Model    string
}

// Engine turns raw article text into a structured summary by trying an
// ordered list of (provider, model) candidates until one succeeds.
type Engine struct {
	completers   map[string]ports.ChatCompleter
	candidates   []Candidate
	maxContent   int
	systemPrompt string
	logger       *slog.Logger
}

var _ ports.Enricher = (*Engine)(nil)

// NewEngine wires the available completers and the candidate order.
// Candidates naming an unavailable provider are skipped at enrich time.
func NewEngine(completers map[string]ports.ChatCompleter, candidates []Candidate, maxContent int, systemPrompt string, log *slog.Logger) *Engine {
	if maxContent <= 0 {
		maxContent = 15000
	}
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &Engine{
		completers:   completers,
		candidates:   candidates,
		maxContent:   maxContent,
		systemPrompt: systemPrompt,
		logger:       log,
	}
}

// Enrich requests a structured analysis of the article. On total failure the
// returned error is a domain.EnrichmentError whose kind is rate-limited when
// any candidate hit a rate limit, terminal otherwise.
func (e *Engine) Enrich(ctx context.Context, title, content string) (string, string, error) {
	if len(content) > e.maxContent {
		content = content[:e.maxContent] + truncationMarker
	}

	prompt := buildPrompt(title, content)

	var (
		attempts    []error
		rateLimited bool
	)

	for _, candidate := range e.candidates {
		completer, ok := e.completers[candidate.Provider]
		if !ok {
			e.debug("skipping candidate, provider unavailable", "provider", candidate.Provider, "model", candidate.Model)
			continue
		}

		response, err := completer.Complete(ctx, candidate.Model, e.systemPrompt, prompt)
		if err != nil {
			var enrichErr *domain.EnrichmentError
			if errors.As(err, &enrichErr) && enrichErr.Kind == domain.KindRateLimited {
				rateLimited = true
			}
			e.warn("enrichment candidate failed", "provider", candidate.Provider, "model", candidate.Model, "error", err)
			attempts = append(attempts, err)
			continue
		}

		summary, insights, ok := parseResponse(response)
		if !ok {
			attempts = append(attempts, fmt.Errorf("%s/%s returned an empty response", candidate.Provider, candidate.Model))
			continue
		}

		e.debug("enrichment succeeded", "provider", candidate.Provider, "model", candidate.Model)
		return summary, insights, nil
	}

	kind := domain.KindTerminal
	if rateLimited {
		kind = domain.KindRateLimited
	}

	err := errors.Join(attempts...)
	if err == nil {
		err = fmt.Errorf("no enrichment candidates available")
	}
	return "", "", &domain.EnrichmentError{Kind: kind, Err: err}
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

// buildPrompt asks for the analysis schema as machine-parseable JSON.
func buildPrompt(title, content string) string {
	var b strings.Builder
	b.WriteString("As a cybersecurity expert, analyze this article comprehensively for a cybersecurity analyst. ")
	b.WriteString("Provide detailed insights that would be valuable for their daily work and strategic understanding.\n\n")
	b.WriteString("Article Title: ")
	b.WriteString(title)
	b.WriteString("\n\nArticle Content:\n")
	b.WriteString(content)
	b.WriteString("\n\nPlease provide a thorough analysis in JSON format with the following structure:\n\n")
	b.WriteString(`{
    "executive_summary": "A comprehensive 3-4 paragraph summary that captures the essence, methodology, and implications of the article",
    "key_takeaways": [
        "Specific, actionable takeaway that a cybersecurity analyst can apply",
        "Technical insight or methodology that can be implemented",
        "Strategic implication for security programs"
    ],
    "technical_details": "Detailed explanation of any technical concepts, tools, methodologies, or frameworks discussed",
    "actionable_items": [
        "Specific action item (e.g., 'Implement X tool for Y purpose')",
        "Process improvement suggestion"
    ],
    "threat_intelligence": "Any threat intelligence, attack techniques, vulnerabilities, or security risks mentioned",
    "tools_and_resources": "List of tools, frameworks, resources, or references mentioned that could be useful",
    "relevance_score": "Score from 1-10 indicating how relevant this is for a cybersecurity analyst, with brief explanation"
}`)
	b.WriteString("\n\nFocus on providing practical, actionable insights that a cybersecurity analyst can use immediately. ")
	b.WriteString("Include specific details about methodologies, tools, and techniques. Don't summarize - analyze and extract value.")
	return b.String()
}
