package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"BlogWatch/internal/domain"
	"BlogWatch/internal/fetch"
)

const userAgent = "BlogWatch/1.0"

// maxLinksPerSelector caps how many matches of each selector are followed,
// keeping listing pages with hundreds of links cheap to scan.
const maxLinksPerSelector = 10

// linkSelectors are tuned for common article-listing markup.
var linkSelectors = []string{
	`a[href*="/blog/"]`,
	`a[href*="/post/"]`,
	`a[href*="/article/"]`,
	"h2 a",
	"h3 a",
	".post-title a",
	".article-title a",
	".entry-title a",
}

// LinkStrategy discovers candidates by scanning a source's HTML page for
// article links. No publication timestamp is available from this strategy.
type LinkStrategy struct {
	client *http.Client
	logger *slog.Logger
}

var _ fetch.Strategy = (*LinkStrategy)(nil)

// NewLinkStrategy wires an HTTP client; a nil client gets a 20s timeout.
func NewLinkStrategy(client *http.Client, log *slog.Logger) *LinkStrategy {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &LinkStrategy{client: client, logger: log}
}

// Name identifies the strategy inside the registry.
func (l *LinkStrategy) Name() domain.FetchStrategy {
	return domain.StrategyLinkDiscovery
}

// Discover fetches the source page, collects links matching the selector
// patterns, resolves them against the page's base URL and returns the first
// unique absolute links, capped at fetch.MaxCandidatesPerSource.
func (l *LinkStrategy) Discover(ctx context.Context, source domain.Source) ([]domain.Candidate, error) {
	base, err := url.Parse(source.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %s: %w", source.URL, err)
	}

	doc, err := l.fetchDocument(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	candidates := make([]domain.Candidate, 0, fetch.MaxCandidatesPerSource)

	for _, selector := range linkSelectors {
		matched := 0
		doc.Find(selector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			if matched >= maxLinksPerSelector || len(candidates) >= fetch.MaxCandidatesPerSource {
				return false
			}
			matched++

			href, ok := link.Attr("href")
			if !ok || href == "" {
				return true
			}

			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return true
			}
			resolved := base.ResolveReference(ref)
			if resolved.Scheme != "http" && resolved.Scheme != "https" {
				return true
			}

			full := resolved.String()
			if _, ok := seen[full]; ok {
				return true
			}
			seen[full] = struct{}{}

			candidates = append(candidates, domain.Candidate{URL: full})
			return true
		})

		if len(candidates) >= fetch.MaxCandidatesPerSource {
			break
		}
	}

	l.debug("link discovery done", "source", source.Name, "candidates", len(candidates))
	return candidates, nil
}

func (l *LinkStrategy) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (l *LinkStrategy) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}
