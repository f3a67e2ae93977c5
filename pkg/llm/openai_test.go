package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIBackend(t *testing.T, handler http.HandlerFunc) (*openaiBackend, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &Config{
		Backend:   BackendOpenAI,
		ModelName: "gpt-4o-mini",
		BaseURL:   server.URL,
		APIKey:    "test-key",
		Timeout:   5 * time.Second,
	}
	cfg.EnforceJSON = true

	clientVal := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	backend, err := newOpenAIBackend(cfg, backendOptions{
		logger:       NewLogger("error"),
		retry:        NewRetryHandler(RetryConfig{MaxRetries: 0}),
		openaiClient: &clientVal,
	})
	require.NoError(t, err)
	return backend, server
}

func TestOpenAIBackendRun(t *testing.T) {
	var gotBody map[string]any
	backend, _ := newTestOpenAIBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"decision\": \"IRRIGATION_ADJUSTMENT\", \"reason\": \"dry soil\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 12, "total_tokens": 22}
		}`))
	})

	out, err := backend.Run(context.Background(), "analyze the case")
	require.NoError(t, err)
	require.JSONEq(t, `{"decision": "IRRIGATION_ADJUSTMENT", "reason": "dry soil"}`, out)

	require.Equal(t, "gpt-4o-mini", gotBody["model"])
	format, ok := gotBody["response_format"].(map[string]any)
	require.True(t, ok, "json mode must be requested")
	require.Equal(t, "json_object", format["type"])
}

func TestOpenAIBackendRunWithoutJSONMode(t *testing.T) {
	var gotBody map[string]any
	backend, _ := newTestOpenAIBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "plain text"}, "finish_reason": "stop"}]
		}`))
	})
	backend.cfg.EnforceJSON = false

	out, err := backend.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "plain text", out)
	_, hasFormat := gotBody["response_format"]
	require.False(t, hasFormat)
}

func TestOpenAIBackendRunServerError(t *testing.T) {
	backend, _ := newTestOpenAIBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "model overloaded"}}`, http.StatusBadRequest)
	})

	_, err := backend.Run(context.Background(), "hello")
	require.Error(t, err)

	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	require.Equal(t, BackendOpenAI, berr.Backend)
}

func TestOpenAIBackendRunEmptyPrompt(t *testing.T) {
	backend, _ := newTestOpenAIBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be called")
	})

	_, err := backend.Run(context.Background(), "")
	require.Error(t, err)
}

func TestOpenAIBackendRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, `{"error": {"message": "upstream"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-3",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "recovered"}, "finish_reason": "stop"}]
		}`))
	}))
	t.Cleanup(server.Close)

	cfg := &Config{
		Backend:     BackendOpenAI,
		ModelName:   "gpt-4o-mini",
		BaseURL:     server.URL,
		APIKey:      "test-key",
		Timeout:     5 * time.Second,
		EnforceJSON: false,
	}
	clientVal := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	backend, err := newOpenAIBackend(cfg, backendOptions{
		logger: NewLogger("error"),
		retry: NewRetryHandler(RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
		}),
		openaiClient: &clientVal,
	})
	require.NoError(t, err)

	out, err := backend.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "recovered", out)
	require.Equal(t, 2, attempts)
}
