package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	readability "github.com/go-shiori/go-readability"

	"BlogWatch/internal/ports"
)

// ErrNoContent marks pages whose reduced text is too short to be usable.
// Callers drop the candidate without persisting anything.
var ErrNoContent = errors.New("no usable content")

// minContentLength is the floor below which a reduced page is rejected.
const minContentLength = 100

// ReadabilityExtractor fetches a page and reduces it to its main prose,
// discarding navigation, ads and markup.
type ReadabilityExtractor struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.Extractor = (*ReadabilityExtractor)(nil)

// New wires an HTTP client; a nil client gets a 30s timeout.
func New(client *http.Client, log *slog.Logger) *ReadabilityExtractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ReadabilityExtractor{client: client, logger: log}
}

// Extract retrieves the page at rawURL and returns its title and clean text.
// It returns ErrNoContent when the reduced text is below the usable floor.
func (e *ReadabilityExtractor) Extract(ctx context.Context, rawURL string) (string, string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid article url %s: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "BlogWatch/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("article returned %s", resp.Status)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return "", "", fmt.Errorf("reduce article: %w", err)
	}

	content := strings.TrimSpace(article.TextContent)
	if len(content) < minContentLength {
		return "", "", ErrNoContent
	}

	if e.logger != nil {
		e.logger.Debug("article extracted", "url", rawURL, "title", article.Title, "length", len(content))
	}

	return strings.TrimSpace(article.Title), content, nil
}

// TitleFromContent derives a title from the first sufficiently long,
// sufficiently short line of extracted content.
func TitleFromContent(content string) string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for i, line := range lines {
		if i >= 5 {
			break
		}
		line = strings.TrimSpace(line)
		if len(line) > 10 && len(line) < 200 {
			return line
		}
	}
	return ""
}

// TitleFromURL falls back to a slug derived from the last URL path segment.
func TitleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	segment := strings.Trim(parsed.Path, "/")
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	if segment == "" {
		return parsed.Host
	}

	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	words := strings.Fields(segment)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
