package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BlogWatch/internal/config"
	"BlogWatch/internal/domain"
	"BlogWatch/internal/ports"
)

// AnthropicClient implements ports.ChatCompleter against the Anthropic
// Messages API.
type AnthropicClient struct {
	endpoint   string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

var _ ports.ChatCompleter = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration.
func NewAnthropicClient(cfg config.ProviderConfig) *AnthropicClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.anthropic.com/v1/messages"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &AnthropicClient{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Provider identifies the client inside the enrichment candidate list.
func (c *AnthropicClient) Provider() string { return "anthropic" }

// Complete sends one user message and returns the first text block of the
// response. Failures are classified at this call site: 429 is rate-limited,
// other HTTP errors are terminal, network errors are transport.
func (c *AnthropicClient) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", &domain.EnrichmentError{Kind: domain.KindTerminal, Provider: c.Provider(), Model: model,
			Err: fmt.Errorf("anthropic client misconfigured")}
	}

	body, err := json.Marshal(map[string]any{
		"model":       model,
		"max_tokens":  c.maxTokens,
		"temperature": 0.2,
		"system":      system,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.EnrichmentError{Kind: domain.KindTransport, Provider: c.Provider(), Model: model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp, c.Provider(), model)
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.EnrichmentError{Kind: domain.KindTerminal, Provider: c.Provider(), Model: model,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Content) == 0 {
		return "", &domain.EnrichmentError{Kind: domain.KindTerminal, Provider: c.Provider(), Model: model,
			Err: fmt.Errorf("empty response content")}
	}

	return parsed.Content[0].Text, nil
}

// classifyStatus maps an HTTP error response to a failure kind.
func classifyStatus(resp *http.Response, provider, model string) *domain.EnrichmentError {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err := fmt.Errorf("%s error %s: %s", provider, resp.Status, strings.TrimSpace(string(payload)))

	kind := domain.KindTerminal
	if resp.StatusCode == http.StatusTooManyRequests {
		kind = domain.KindRateLimited
	}
	return &domain.EnrichmentError{Kind: kind, Provider: provider, Model: model, Err: err}
}
