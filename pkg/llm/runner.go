package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Runner drives a Backend with rendered prompts. It is the single entry point
// the decision layers use for inference, so prompt construction failures
// surface before any backend call is made.
type Runner struct {
	backend Backend
	logger  Logger
}

// NewRunner wraps backend. A nil logger falls back to the default logx logger.
func NewRunner(backend Backend, logger Logger) (*Runner, error) {
	if backend == nil {
		return nil, errors.New("llm: backend cannot be nil")
	}
	if logger == nil {
		logger = NewLogger(defaultLogLevel)
	}
	return &Runner{backend: backend, logger: logger}, nil
}

// Backend returns the underlying backend.
func (r *Runner) Backend() Backend { return r.backend }

// Run sends a fully pre-built prompt to the backend.
func (r *Runner) Run(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("llm: prompt cannot be empty")
	}

	start := time.Now()
	out, err := r.backend.Run(ctx, prompt)
	if err != nil {
		return "", err
	}

	r.logger.Debug(ctx, "prompt run", Fields{
		"backend":       r.backend.Name(),
		"prompt_digest": DigestString(prompt),
		"duration_ms":   time.Since(start).Milliseconds(),
	})
	return out, nil
}

// RunTemplate renders tmpl with vars and runs the result. Missing keys are a
// render error, not an empty substitution.
func (r *Runner) RunTemplate(ctx context.Context, tmpl string, vars map[string]any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("llm: parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("llm: render prompt template: %w", err)
	}
	return r.Run(ctx, buf.String())
}

// RunBuilt runs the prompt produced by build. Builder errors are returned
// without touching the backend.
func (r *Runner) RunBuilt(ctx context.Context, build func() (string, error)) (string, error) {
	if build == nil {
		return "", errors.New("llm: prompt builder cannot be nil")
	}
	prompt, err := build()
	if err != nil {
		return "", fmt.Errorf("llm: build prompt: %w", err)
	}
	return r.Run(ctx, prompt)
}
