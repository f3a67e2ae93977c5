package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"
)

// Backoff schedule used when the config leaves the knobs unset.
const (
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 3 * time.Second
	defaultBackoffFactor  = 2.0
)

// retryableStatuses are the HTTP statuses worth another attempt. Client
// errors such as 400/401/404 fail the same way on every attempt.
var retryableStatuses = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// RetryableStatus reports whether an HTTP status code indicates a transient
// failure.
func RetryableStatus(code int) bool {
	_, ok := retryableStatuses[code]
	return ok
}

// StatusError reports a non-2xx response from a raw HTTP call, such as the
// local Ollama embeddings endpoint. It lets RetryHandler classify hand-rolled
// HTTP failures the same way it classifies SDK errors.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// RetryConfig bounds the retry loop. MaxRetries counts additional attempts
// after the first call.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// RetryHandler re-runs transient failures with exponential backoff.
type RetryHandler struct {
	cfg RetryConfig
}

// NewRetryHandler constructs a handler, clamping unusable settings to the
// defaults.
func NewRetryHandler(cfg RetryConfig) *RetryHandler {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = defaultBackoffFactor
	}
	return &RetryHandler{cfg: cfg}
}

// Do calls fn until it succeeds, fails permanently, or runs out of attempts.
// A cancelled context aborts the wait between attempts.
func (r *RetryHandler) Do(ctx context.Context, fn func() error) error {
	delay := r.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= r.cfg.MaxRetries || !shouldRetry(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
		if delay > r.cfg.MaxBackoff {
			delay = r.cfg.MaxBackoff
		}
	}
}

// shouldRetry classifies the failures the two transports produce: openai.Error
// from the SDK-backed chat and embedding calls, StatusError from raw HTTP to
// Ollama, and net errors from either. Context expiry is the caller giving up
// and is never retried.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return RetryableStatus(apiErr.StatusCode)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return RetryableStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Temporary() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
