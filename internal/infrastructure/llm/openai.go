package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"BlogWatch/internal/config"
	"BlogWatch/internal/domain"
	"BlogWatch/internal/ports"
)

// OpenAIClient implements ports.ChatCompleter against OpenAI-compatible
// chat-completion APIs.
type OpenAIClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ ports.ChatCompleter = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.ProviderConfig) *OpenAIClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}
	return &OpenAIClient{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Provider identifies the client inside the enrichment candidate list.
func (c *OpenAIClient) Provider() string { return "openai" }

// Complete posts a system+user message pair and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", &domain.EnrichmentError{Kind: domain.KindTerminal, Provider: c.Provider(), Model: model,
			Err: fmt.Errorf("openai client misconfigured")}
	}

	body, err := json.Marshal(map[string]any{
		"model":       model,
		"temperature": 0.2,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.EnrichmentError{Kind: domain.KindTerminal, Provider: c.Provider(), Model: model,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &domain.EnrichmentError{Kind: domain.KindTerminal, Provider: c.Provider(), Model: model,
			Err: fmt.Errorf("empty response choices")}
	}

	return parsed.Choices[0].Message.Content, nil
}
