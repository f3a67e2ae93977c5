package memory

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cropagent/pkg/confkit"
)

// Supported index and store kinds.
const (
	IndexFlat = "flat"
	IndexHNSW = "hnsw"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

const (
	defaultTopK      = 3
	defaultIndexPath = "data/memory/crop_memory.index"
	defaultStorePath = "data/memory/cases.db"
)

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
}

// StoreConfig selects the case text store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// Config holds the memory layer settings.
type Config struct {
	TopK         int             `yaml:"top_k"`
	EmbeddingDim int             `yaml:"embedding_dim"`
	IndexType    string          `yaml:"index_type"`
	IndexPath    string          `yaml:"index_path"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Store        StoreConfig     `yaml:"store"`
}

// LoadConfig reads the memory configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open memory config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads the configuration from the default project location and
// panics on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(confkit.MustProjectPath("etc/memory.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var raw struct {
		Memory Config `yaml:"memory"`
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read memory config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal memory config: %w", err)
	}

	cfg := raw.Memory
	cfg.applyDefaults()
	cfg.expandEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency. Failures are
// *confkit.ConfigurationError and fatal at startup.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return confkit.ConfigErr("memory", "top_k must be positive")
	}
	if c.EmbeddingDim <= 0 {
		return confkit.ConfigErr("memory", "embedding_dim must be positive")
	}
	switch c.IndexType {
	case IndexFlat, IndexHNSW:
	default:
		return confkit.ConfigErr("memory", "unsupported index_type %q", c.IndexType)
	}
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
	case "":
		return confkit.ConfigErr("memory", "embedding.provider is required")
	default:
		return confkit.ConfigErr("memory", "unsupported embedding provider %q", c.Embedding.Provider)
	}
	switch c.Store.Driver {
	case StoreSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return confkit.ConfigErr("memory", "store.path is required for sqlite")
		}
	case StorePostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return confkit.ConfigErr("memory", "store.dsn is required for postgres")
		}
	default:
		return confkit.ConfigErr("memory", "unsupported store driver %q", c.Store.Driver)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.TopK == 0 {
		c.TopK = defaultTopK
	}
	if c.IndexType == "" {
		c.IndexType = IndexFlat
	}
	if c.IndexPath == "" {
		c.IndexPath = defaultIndexPath
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreSQLite
	}
	if c.Store.Driver == StoreSQLite && c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
}

func (c *Config) expandEnv() {
	c.IndexPath = os.ExpandEnv(c.IndexPath)
	c.Embedding.BaseURL = os.ExpandEnv(c.Embedding.BaseURL)
	c.Embedding.APIKey = os.ExpandEnv(c.Embedding.APIKey)
	c.Store.Path = os.ExpandEnv(c.Store.Path)
	c.Store.DSN = os.ExpandEnv(c.Store.DSN)
}
