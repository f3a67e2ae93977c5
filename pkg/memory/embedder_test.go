package memory

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"cropagent/pkg/llm"
)

func TestNormalizeL2(t *testing.T) {
	vec := normalizeL2(Vector{3, 4})
	require.InDelta(t, 0.6, vec[0], 1e-6)
	require.InDelta(t, 0.8, vec[1], 1e-6)

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	// The zero vector stays untouched instead of dividing by zero.
	zero := normalizeL2(Vector{0, 0})
	require.Equal(t, Vector{0, 0}, zero)
}

func TestOllamaEmbedder(t *testing.T) {
	var gotReq ollamaEmbedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: Vector{3, 4}})
	}))
	defer server.Close()

	embedder := newOllamaEmbedder(EmbeddingConfig{
		Provider: ProviderOllama,
		Model:    "all-minilm",
		BaseURL:  server.URL,
	}, 2)

	vec, err := embedder.Embed(context.Background(), "Tomato Leaf Blight")
	require.NoError(t, err)
	require.Equal(t, "all-minilm", gotReq.Model)
	require.Equal(t, "Tomato Leaf Blight", gotReq.Prompt)
	require.InDelta(t, 0.6, vec[0], 1e-6)
	require.InDelta(t, 0.8, vec[1], 1e-6)
	require.Equal(t, 2, embedder.Dims())
}

func TestOllamaEmbedderServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	embedder := newOllamaEmbedder(EmbeddingConfig{Model: "all-minilm", BaseURL: server.URL}, 2)
	_, err := embedder.Embed(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "model not loaded")

	// A 500 is transient, so the embedder retries before giving up.
	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Equal(t, 3, attempts)
}

func TestOllamaEmbedderRecoversAfterTransientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: Vector{3, 4}})
	}))
	defer server.Close()

	embedder := newOllamaEmbedder(EmbeddingConfig{Model: "all-minilm", BaseURL: server.URL}, 2)
	vec, err := embedder.Embed(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.InDelta(t, 0.6, vec[0], 1e-6)
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [{"object": "embedding", "index": 0, "embedding": [3, 4]}],
			"model": "text-embedding-3-small"
		}`))
	}))
	defer server.Close()

	embedder := newOpenAIEmbedder(EmbeddingConfig{
		Provider: ProviderOpenAI,
		Model:    "text-embedding-3-small",
		BaseURL:  server.URL,
		APIKey:   "test-key",
	}, 2)

	vec, err := embedder.Embed(context.Background(), "Tomato Leaf Blight")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	require.InDelta(t, 0.6, vec[0], 1e-6)
	require.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(EmbeddingConfig{Provider: ProviderOllama, Model: "all-minilm"}, 384)
	require.NoError(t, err)
	require.IsType(t, &ollamaEmbedder{}, e)

	e, err = NewEmbedder(EmbeddingConfig{Provider: ProviderOpenAI, Model: "text-embedding-3-small", APIKey: "k"}, 1536)
	require.NoError(t, err)
	require.IsType(t, &openaiEmbedder{}, e)

	_, err = NewEmbedder(EmbeddingConfig{Provider: "fasttext"}, 300)
	require.Error(t, err)
}
