package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"BlogWatch/internal/config"
	"BlogWatch/internal/domain"
)

func TestAnthropicCompleteHappyPath(t *testing.T) {
	t.Parallel()

	var captured struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    string `json:"system"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "analysis text"}]}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(config.ProviderConfig{Endpoint: server.URL, APIKey: "test-key"})

	text, err := client.Complete(context.Background(), "claude-3-haiku-20240307", "system prompt", "analyze this")
	require.NoError(t, err)
	require.Equal(t, "analysis text", text)

	require.Equal(t, "claude-3-haiku-20240307", captured.Model)
	require.Equal(t, 2000, captured.MaxTokens)
	require.Equal(t, "system prompt", captured.System)
	require.Len(t, captured.Messages, 1)
	require.Equal(t, "user", captured.Messages[0].Role)
	require.Equal(t, "analyze this", captured.Messages[0].Content)
}

func TestAnthropicRateLimitIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"type": "rate_limit_error"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewAnthropicClient(config.ProviderConfig{Endpoint: server.URL, APIKey: "test-key"})

	_, err := client.Complete(context.Background(), "claude-3-haiku-20240307", "system", "prompt")
	require.Error(t, err)

	var enrichErr *domain.EnrichmentError
	require.True(t, errors.As(err, &enrichErr))
	require.Equal(t, domain.KindRateLimited, enrichErr.Kind)
	require.True(t, enrichErr.Retryable())
}

func TestAnthropicServerErrorIsTerminal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"type": "overloaded_error"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewAnthropicClient(config.ProviderConfig{Endpoint: server.URL, APIKey: "test-key"})

	_, err := client.Complete(context.Background(), "claude-3-haiku-20240307", "system", "prompt")
	require.Error(t, err)

	var enrichErr *domain.EnrichmentError
	require.True(t, errors.As(err, &enrichErr))
	require.Equal(t, domain.KindTerminal, enrichErr.Kind)
	require.False(t, enrichErr.Retryable())
	require.Contains(t, err.Error(), "overloaded_error")
}

func TestAnthropicNetworkFailureIsTransport(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewAnthropicClient(config.ProviderConfig{Endpoint: server.URL, APIKey: "test-key"})

	_, err := client.Complete(context.Background(), "claude-3-haiku-20240307", "system", "prompt")
	require.Error(t, err)

	var enrichErr *domain.EnrichmentError
	require.True(t, errors.As(err, &enrichErr))
	require.Equal(t, domain.KindTransport, enrichErr.Kind)
}

func TestAnthropicMissingKeyIsTerminal(t *testing.T) {
	t.Parallel()

	client := NewAnthropicClient(config.ProviderConfig{})

	_, err := client.Complete(context.Background(), "claude-3-haiku-20240307", "system", "prompt")
	require.Error(t, err)

	var enrichErr *domain.EnrichmentError
	require.True(t, errors.As(err, &enrichErr))
	require.Equal(t, domain.KindTerminal, enrichErr.Kind)
}

func TestAnthropicEmptyContentIsTerminal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content": []}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(config.ProviderConfig{Endpoint: server.URL, APIKey: "test-key"})

	_, err := client.Complete(context.Background(), "claude-3-haiku-20240307", "system", "prompt")
	require.Error(t, err)

	var enrichErr *domain.EnrichmentError
	require.True(t, errors.As(err, &enrichErr))
	require.Equal(t, domain.KindTerminal, enrichErr.Kind)
}
