package agent

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"cropagent/pkg/confkit"
)

// SafetyConfig controls the decision gate.
type SafetyConfig struct {
	BlockUnknownActions      bool `yaml:"block_unknown_actions"`
	RequireHumanConfirmation bool `yaml:"require_human_confirmation"`
}

// Config holds the decision and planning policy.
type Config struct {
	Agent struct {
		AllowedActions []string     `yaml:"allowed_actions"`
		Safety         SafetyConfig `yaml:"safety"`
	} `yaml:"agent"`
	Planner struct {
		AllowedPlanActions []string `yaml:"allowed_plan_actions"`
	} `yaml:"planner"`
}

// LoadConfig reads the agent policy from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open agent config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads the policy from the default project location and panics on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(confkit.MustProjectPath("etc/agent.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read agent config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal agent config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the policy is usable. Failures are
// *confkit.ConfigurationError and fatal at startup.
func (c *Config) Validate() error {
	if len(c.Agent.AllowedActions) == 0 {
		return confkit.ConfigErr("agent", "agent.allowed_actions cannot be empty")
	}
	if len(c.Planner.AllowedPlanActions) == 0 {
		return confkit.ConfigErr("agent", "planner.allowed_plan_actions cannot be empty")
	}
	return nil
}
