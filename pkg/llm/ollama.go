package llm

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const ollamaBinary = "ollama"

// ollamaBackend shells out to the local ollama CLI. The prompt is written to
// stdin and the completion read from stdout, so no server endpoint or API key
// is needed.
type ollamaBackend struct {
	model   string
	timeout time.Duration
	binary  string
	logger  Logger
}

func newOllamaBackend(cfg *Config, logger Logger) *ollamaBackend {
	return &ollamaBackend{
		model:   cfg.ModelName,
		timeout: cfg.Timeout,
		binary:  ollamaBinary,
		logger:  logger,
	}
}

func (b *ollamaBackend) Name() string { return BackendOllama }

func (b *ollamaBackend) Run(ctx context.Context, prompt string) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, b.binary, "run", b.model)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		berr := &BackendError{
			Backend: BackendOllama,
			Detail:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
		b.logger.Error(ctx, berr, Fields{"model": b.model})
		return "", berr
	}

	out := strings.TrimSpace(stdout.String())
	b.logger.Info(ctx, "ollama completion", Fields{
		"model":       b.model,
		"duration_ms": time.Since(start).Milliseconds(),
		"bytes":       len(out),
	})
	return out, nil
}
