package llm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cropagent/pkg/confkit"
)

func TestLoadConfig(t *testing.T) {
	t.Run("load from valid file", func(t *testing.T) {
		content := `
backend: "openai"
model_name: "gpt-4o-mini"
base_url: "https://api.example.com"
api_key: "test-api-key"
timeout: "30s"
max_retries: 2
log_level: "debug"
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		err := os.WriteFile(configPath, []byte(content), 0644)
		require.NoError(t, err)

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		require.Equal(t, BackendOpenAI, cfg.Backend)
		require.Equal(t, "gpt-4o-mini", cfg.ModelName)
		require.Equal(t, "https://api.example.com", cfg.BaseURL)
		require.Equal(t, "test-api-key", cfg.APIKey)
		require.Equal(t, 30*time.Second, cfg.Timeout)
		require.Equal(t, 2, cfg.MaxRetries)
		require.Equal(t, "debug", cfg.LogLevel)
		require.True(t, cfg.EnforceJSON)
	})

	t.Run("ollama defaults", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader("backend: ollama\nmodel_name: mistral\n"))
		require.NoError(t, err)
		require.Equal(t, BackendOllama, cfg.Backend)
		require.Equal(t, defaultTimeout, cfg.Timeout)
		require.Equal(t, defaultMaxRetries, cfg.MaxRetries)
		require.Equal(t, defaultLogLevel, cfg.LogLevel)
		require.True(t, cfg.EnforceJSON)
	})

	t.Run("enforce json can be disabled", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader("backend: ollama\nmodel_name: mistral\nenforce_json: false\n"))
		require.NoError(t, err)
		require.False(t, cfg.EnforceJSON)
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		require.Error(t, err)
		require.Contains(t, err.Error(), "open llm config")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader("backend: ollama\n  invalid: yaml: structure\n"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unmarshal llm config")
	})

	t.Run("invalid timeout", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader("backend: ollama\nmodel_name: mistral\ntimeout: banana\n"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid timeout")
	})
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CROPAGENT_LLM_BACKEND", "openai")
	t.Setenv("CROPAGENT_LLM_MODEL", "gpt-4o")
	t.Setenv("CROPAGENT_LLM_API_KEY", "env-key")
	t.Setenv("CROPAGENT_LLM_TIMEOUT", "5s")
	t.Setenv("CROPAGENT_LLM_MAX_RETRIES", "7")

	cfg, err := LoadConfigFromReader(strings.NewReader("backend: ollama\nmodel_name: mistral\n"))
	require.NoError(t, err)
	require.Equal(t, BackendOpenAI, cfg.Backend)
	require.Equal(t, "gpt-4o", cfg.ModelName)
	require.Equal(t, "env-key", cfg.APIKey)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, 7, cfg.MaxRetries)
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "expanded-key")

	cfg, err := LoadConfigFromReader(strings.NewReader("backend: openai\nmodel_name: gpt-4o-mini\napi_key: ${TEST_LLM_KEY}\n"))
	require.NoError(t, err)
	require.Equal(t, "expanded-key", cfg.APIKey)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backend:    BackendOpenAI,
			ModelName:  "gpt-4o-mini",
			APIKey:     "key",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:   "missing backend",
			mutate: func(c *Config) { c.Backend = "" },
			errMsg: "backend is required",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Backend = "bard" },
			errMsg: "unsupported backend",
		},
		{
			name:   "missing model",
			mutate: func(c *Config) { c.ModelName = "" },
			errMsg: "model_name is required",
		},
		{
			name:   "openai without api key",
			mutate: func(c *Config) { c.APIKey = "" },
			errMsg: "api_key is required",
		},
		{
			name:   "negative retries",
			mutate: func(c *Config) { c.MaxRetries = -1 },
			errMsg: "max_retries cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Backend: BackendOllama, ModelName: "mistral", Timeout: time.Minute}
	cp := cfg.Clone()
	require.Equal(t, cfg, cp)

	cp.ModelName = "llama3"
	require.Equal(t, "mistral", cfg.ModelName)
}

func TestValidateReturnsConfigurationError(t *testing.T) {
	cfg := &Config{Backend: BackendOllama, Timeout: time.Minute}
	err := cfg.Validate()

	var confErr *confkit.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	require.Equal(t, "llm", confErr.Section)
	require.Contains(t, confErr.Error(), "model_name is required")
}
