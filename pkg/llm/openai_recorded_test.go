package llm

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
)

// This test uses go-vcr to record/replay a real chat completion call.
// It skips by default if the cassette is absent and RECORD_CASSETTES != 1.
func TestOpenAIBackend_Run_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "openai_chat.yaml")
	if _, err := os.Stat(cassette); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s", cassette)
		}
		err := os.MkdirAll(filepath.Dir(cassette), 0o755)
		assert.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	r, err := recorder.New(cassette)
	assert.NoError(t, err, "recorder.New should not error")
	assert.NotNil(t, r, "recorder should not be nil")
	defer func() { _ = r.Stop() }()

	apiKey := os.Getenv("CROPAGENT_LLM_API_KEY")
	if apiKey == "" {
		apiKey = "cassette-key"
	}
	cfg := &Config{
		Backend:     BackendOpenAI,
		ModelName:   "gpt-4o-mini",
		BaseURL:     defaultOpenAIBaseURL,
		APIKey:      apiKey,
		Timeout:     30 * time.Second,
		EnforceJSON: true,
	}

	backend, err := NewBackend(cfg, WithHTTPClient(&http.Client{Transport: r}))
	assert.NoError(t, err, "NewBackend should not error")

	out, err := backend.Run(context.Background(),
		"Return a JSON object with a single key \"decision\" set to \"NO_TREATMENT\".")
	assert.NoError(t, err, "Run should not error")
	assert.NotEmpty(t, out, "completion should not be empty")
	assert.Contains(t, out, "NO_TREATMENT")
}
