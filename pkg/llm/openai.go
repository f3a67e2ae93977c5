package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiBackend talks to an OpenAI-compatible chat completion endpoint.
type openaiBackend struct {
	cfg    *Config
	client *openai.Client
	logger Logger
	retry  *RetryHandler
}

func newOpenAIBackend(cfg *Config, opts backendOptions) (*openaiBackend, error) {
	oaClient := opts.openaiClient
	if oaClient == nil {
		oaOpts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
		}
		if cfg.Timeout > 0 {
			oaOpts = append(oaOpts, option.WithRequestTimeout(cfg.Timeout))
		}
		if opts.httpClient != nil {
			oaOpts = append(oaOpts, option.WithHTTPClient(opts.httpClient))
		}
		clientVal := openai.NewClient(oaOpts...)
		oaClient = &clientVal
	}

	return &openaiBackend{
		cfg:    cfg,
		client: oaClient,
		logger: opts.logger,
		retry:  opts.retry,
	}, nil
}

func (b *openaiBackend) Name() string { return BackendOpenAI }

func (b *openaiBackend) Run(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("llm: prompt cannot be empty")
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.cfg.ModelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if b.cfg.EnforceJSON {
		val := shared.NewResponseFormatJSONObjectParam()
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &val,
		}
	}

	start := time.Now()
	b.logger.Info(ctx, "openai chat request", Fields{
		"model":         b.cfg.ModelName,
		"prompt_digest": DigestString(prompt),
	})

	var completion *openai.ChatCompletion
	err := b.retry.Do(ctx, func() error {
		resp, callErr := b.client.Chat.Completions.New(ctx, params)
		if callErr != nil {
			b.logger.Error(ctx, fmt.Errorf("chat completion failed: %w", callErr), Fields{
				"model": b.cfg.ModelName,
			})
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		return "", &BackendError{
			Backend: BackendOpenAI,
			Detail:  err.Error(),
			Err:     err,
		}
	}

	if completion == nil || len(completion.Choices) == 0 {
		return "", &BackendError{
			Backend: BackendOpenAI,
			Detail:  "empty completion",
		}
	}

	out := strings.TrimSpace(completion.Choices[0].Message.Content)
	b.logger.Info(ctx, "openai chat success", Fields{
		"model":             b.cfg.ModelName,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     completion.Usage.PromptTokens,
		"completion_tokens": completion.Usage.CompletionTokens,
	})
	return out, nil
}
