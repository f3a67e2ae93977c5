package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
)

// Backend generates a completion for a fully rendered prompt.
type Backend interface {
	Run(ctx context.Context, prompt string) (string, error)
	Name() string
}

// BackendOption configures optional backend behaviour.
type BackendOption func(*backendOptions)

type backendOptions struct {
	logger       Logger
	retry        *RetryHandler
	httpClient   *http.Client
	openaiClient *openai.Client
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger Logger) BackendOption {
	return func(opts *backendOptions) {
		opts.logger = logger
	}
}

// WithRetryHandler injects a custom retry handler.
func WithRetryHandler(handler *RetryHandler) BackendOption {
	return func(opts *backendOptions) {
		opts.retry = handler
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) BackendOption {
	return func(opts *backendOptions) {
		opts.httpClient = client
	}
}

// WithOpenAIClient injects a pre-configured OpenAI client (primarily for testing).
func WithOpenAIClient(client *openai.Client) BackendOption {
	return func(opts *backendOptions) {
		opts.openaiClient = client
	}
}

// NewBackend constructs the backend named by cfg.Backend.
func NewBackend(cfg *Config, opts ...BackendOption) (Backend, error) {
	if cfg == nil {
		return nil, errors.New("llm: config cannot be nil")
	}

	backendCfg := cfg.Clone()
	if err := backendCfg.Validate(); err != nil {
		return nil, err
	}

	optState := backendOptions{}
	for _, opt := range opts {
		opt(&optState)
	}
	if optState.logger == nil {
		optState.logger = NewLogger(backendCfg.LogLevel)
	}
	if optState.retry == nil {
		optState.retry = NewRetryHandler(RetryConfig{MaxRetries: backendCfg.MaxRetries})
	}

	switch backendCfg.Backend {
	case BackendOllama:
		return newOllamaBackend(backendCfg, optState.logger), nil
	case BackendOpenAI:
		return newOpenAIBackend(backendCfg, optState)
	default:
		return nil, fmt.Errorf("llm: unsupported backend %q", backendCfg.Backend)
	}
}
