package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"cropagent/pkg/llm"
)

// Embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text. Implementations return
// L2-normalised vectors so inner-product search behaves as cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// NewEmbedder constructs the embedder named by cfg.Provider.
func NewEmbedder(cfg EmbeddingConfig, dims int) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOllama:
		return newOllamaEmbedder(cfg, dims), nil
	case ProviderOpenAI:
		return newOpenAIEmbedder(cfg, dims), nil
	default:
		return nil, fmt.Errorf("memory: unsupported embedding provider %q", cfg.Provider)
	}
}

func normalizeL2(v Vector) Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// ollamaEmbedder calls a local Ollama instance's embeddings endpoint.
// Transient server errors are retried with the same backoff policy the
// inference backends use.
type ollamaEmbedder struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
	retry   *llm.RetryHandler
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding Vector `json:"embedding"`
}

func newOllamaEmbedder(cfg EmbeddingConfig, dims int) *ollamaEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaEmbedder{
		baseURL: baseURL,
		model:   cfg.Model,
		dims:    dims,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   llm.NewRetryHandler(llm.RetryConfig{MaxRetries: 2, InitialBackoff: 100 * time.Millisecond}),
	}
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	var result ollamaEmbedResponse
	err := e.retry.Do(ctx, func() error {
		body, _ := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("memory: ollama embed request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("memory: ollama embed: %w", &llm.StatusError{
				Endpoint:   "/api/embeddings",
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(b)),
			})
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return nil, err
	}
	if len(result.Embedding) == 0 {
		return nil, errors.New("memory: empty embedding returned")
	}
	return normalizeL2(result.Embedding), nil
}

func (e *ollamaEmbedder) Dims() int { return e.dims }

// openaiEmbedder uses the OpenAI embeddings API via the official SDK.
type openaiEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

func newOpenAIEmbedder(cfg EmbeddingConfig, dims int) *openaiEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	clientVal := openai.NewClient(opts...)
	return &openaiEmbedder{
		client: &clientVal,
		model:  cfg.Model,
		dims:   dims,
	}
}

func (e *openaiEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("memory: openai embed request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("memory: empty embedding returned")
	}

	raw := resp.Data[0].Embedding
	vec := make(Vector, len(raw))
	for i, x := range raw {
		vec[i] = float32(x)
	}
	return normalizeL2(vec), nil
}

func (e *openaiEmbedder) Dims() int { return e.dims }
