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

func TestOpenAICompleteHappyPath(t *testing.T) {
	t.Parallel()

	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "analysis text"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.ProviderConfig{Endpoint: server.URL, APIKey: "test-key"})

	text, err := client.Complete(context.Background(), "gpt-4o-mini", "system prompt", "analyze this")
	require.NoError(t, err)
	require.Equal(t, "analysis text", text)

	require.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	require.Equal(t, "system", captured.Messages[0].Role)
	require.Equal(t, "system prompt", captured.Messages[0].Content)
	require.Equal(t, "user", captured.Messages[1].Role)
}

func TestOpenAIRateLimitIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"code": "rate_limit_exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenAIClient(config.ProviderConfig{Endpoint: server.URL, APIKey: "test-key"})

	_, err := client.Complete(context.Background(), "gpt-4o-mini", "system", "prompt")
	require.Error(t, err)

	var enrichErr *domain.EnrichmentError
	require.True(t, errors.As(err, &enrichErr))
	require.Equal(t, domain.KindRateLimited, enrichErr.Kind)
}

func TestOpenAIEmptyChoicesIsTerminal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.ProviderConfig{Endpoint: server.URL, APIKey: "test-key"})

	_, err := client.Complete(context.Background(), "gpt-4o-mini", "system", "prompt")
	require.Error(t, err)

	var enrichErr *domain.EnrichmentError
	require.True(t, errors.As(err, &enrichErr))
	require.Equal(t, domain.KindTerminal, enrichErr.Kind)
}
