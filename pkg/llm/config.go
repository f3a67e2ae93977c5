package llm

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cropagent/pkg/confkit"
)

// Supported backend kinds.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultTimeout       = 60 * time.Second
	defaultMaxRetries    = 3
	defaultLogLevel      = "info"

	envBackend    = "CROPAGENT_LLM_BACKEND"
	envModelName  = "CROPAGENT_LLM_MODEL"
	envBaseURL    = "CROPAGENT_LLM_BASE_URL"
	envAPIKey     = "CROPAGENT_LLM_API_KEY"
	envTimeout    = "CROPAGENT_LLM_TIMEOUT"
	envMaxRetries = "CROPAGENT_LLM_MAX_RETRIES"
)

// Config holds runtime settings for the inference layer.
type Config struct {
	Backend     string        `yaml:"backend"`
	ModelName   string        `yaml:"model_name"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	EnforceJSON bool          `yaml:"-"`
	Timeout     time.Duration `yaml:"-"`
	MaxRetries  int           `yaml:"max_retries"`
	LogLevel    string        `yaml:"log_level"`

	timeoutRaw     string
	enforceJSONRaw *bool
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open llm config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads configuration from the default project location and panics on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(confkit.MustProjectPath("etc/llm.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var raw struct {
		Backend     string `yaml:"backend"`
		ModelName   string `yaml:"model_name"`
		BaseURL     string `yaml:"base_url"`
		APIKey      string `yaml:"api_key"`
		EnforceJSON *bool  `yaml:"enforce_json"`
		Timeout     string `yaml:"timeout"`
		MaxRetries  int    `yaml:"max_retries"`
		LogLevel    string `yaml:"log_level"`
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read llm config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal llm config: %w", err)
	}

	cfg := &Config{
		Backend:        raw.Backend,
		ModelName:      raw.ModelName,
		BaseURL:        raw.BaseURL,
		APIKey:         raw.APIKey,
		MaxRetries:     raw.MaxRetries,
		LogLevel:       raw.LogLevel,
		timeoutRaw:     raw.Timeout,
		enforceJSONRaw: raw.EnforceJSON,
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	if err := cfg.parseTimeout(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present. Failures are
// *confkit.ConfigurationError and fatal at startup.
func (c *Config) Validate() error {
	switch strings.TrimSpace(c.Backend) {
	case BackendOllama, BackendOpenAI:
	case "":
		return confkit.ConfigErr("llm", "backend is required")
	default:
		return confkit.ConfigErr("llm", "unsupported backend %q", c.Backend)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return confkit.ConfigErr("llm", "model_name is required")
	}
	if c.Backend == BackendOpenAI && strings.TrimSpace(c.APIKey) == "" {
		return confkit.ConfigErr("llm", "api_key is required for the openai backend")
	}
	if c.Timeout <= 0 {
		return confkit.ConfigErr("llm", "timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return confkit.ConfigErr("llm", "max_retries cannot be negative")
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.BaseURL) == "" && c.Backend == BackendOpenAI {
		c.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.enforceJSONRaw != nil {
		c.EnforceJSON = *c.enforceJSONRaw
	} else {
		c.EnforceJSON = true
	}
}

func (c *Config) applyEnvOverrides() {
	c.Backend = expandAndOverride(c.Backend, envBackend)
	c.ModelName = expandAndOverride(c.ModelName, envModelName)
	c.BaseURL = expandAndOverride(c.BaseURL, envBaseURL)
	c.APIKey = expandAndOverride(c.APIKey, envAPIKey)

	if raw := os.Getenv(envTimeout); raw != "" {
		c.timeoutRaw = raw
	} else {
		c.timeoutRaw = os.ExpandEnv(c.timeoutRaw)
	}

	if raw := os.Getenv(envMaxRetries); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			c.MaxRetries = v
		}
	}
}

func (c *Config) parseTimeout() error {
	if strings.TrimSpace(c.timeoutRaw) == "" {
		c.Timeout = defaultTimeout
		return nil
	}

	d, err := time.ParseDuration(c.timeoutRaw)
	if err != nil {
		return fmt.Errorf("llm config: invalid timeout %q: %w", c.timeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("llm config: timeout must be positive, got %s", d)
	}
	c.Timeout = d
	return nil
}

func expandAndOverride(current, envKey string) string {
	current = os.ExpandEnv(current)
	if envVal := os.Getenv(envKey); envVal != "" {
		return envVal
	}
	return current
}
