// Package config loads and validates PromptQA's configuration: flags, a
// YAML/JSON config file, and environment variables, merged into one
// validated record. Loading is thin plumbing— it never decides
// orchestration behavior itself.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider identifies the LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderMock      Provider = "mock"
)

// Defaults for configuration fields left unset by flags, file, or env.
const (
	DefaultMaxSteps            = 12
	DefaultTimeoutSeconds      = 180
	DefaultActionTimeoutMs     = 8000
	DefaultNavigationTimeoutMs = 15000
	DefaultRetryWaitMs         = 1000
	DefaultLoginMaxSteps       = 6
	DefaultAgentMaxSteps       = 20
	DefaultMaxTokens           = 4096
	DefaultReportPath          = ".artifacts"
	DefaultConfigPath          = ".promptqa.yaml"
)

// AuthConfig carries pre-auth cookie and login-prompt settings.
type AuthConfig struct {
	Cookie      string `yaml:"cookie,omitempty" json:"cookie,omitempty"`
	LoginPrompt string `yaml:"loginPrompt,omitempty" json:"loginPrompt,omitempty"`
}

// TestCase is one named entry in the `tests:` list of a config file.
type TestCase struct {
	Name   string `yaml:"name" json:"name"`
	Prompt string `yaml:"prompt" json:"prompt"`
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
}

// LoggingConfig is the structured-logging section.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug|info|warn|error
	Format string `yaml:"format" json:"format"` // text|json
}

// CacheConfig is the ambient snapshot-cache section.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	TTLSeconds int  `yaml:"ttlSeconds" json:"ttlSeconds"`
}

// Config is the fully-merged, validated configuration for one invocation.
type Config struct {
	BaseURL   string     `yaml:"baseUrl" json:"baseUrl"`
	MaxSteps  int        `yaml:"maxSteps" json:"maxSteps"`
	Headless  bool       `yaml:"headless" json:"headless"`
	Timeout   int        `yaml:"timeout" json:"timeout"` // seconds
	Provider  Provider   `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model     string     `yaml:"model,omitempty" json:"model,omitempty"`
	APIKey    string     `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	MaxTokens int        `yaml:"maxTokens,omitempty" json:"maxTokens,omitempty"`
	Auth      AuthConfig `yaml:"auth,omitempty" json:"auth,omitempty"`
	Tests     []TestCase `yaml:"tests,omitempty" json:"tests,omitempty"`

	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty" json:"cache,omitempty"`

	ReportPath string `yaml:"-" json:"-"` // CLI-only override, not persisted
}

// DefaultConfig returns a config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxSteps: DefaultMaxSteps,
		Headless: false,
		Timeout:  DefaultTimeoutSeconds,
		Provider: ProviderAnthropic,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: DefaultTimeoutSeconds,
		},
		ReportPath: DefaultReportPath,
	}
}

// Load reads a config file (YAML or JSON, detected by extension or a
// leading '{' byte), expands ${ENV_VAR} references, applies
// environment-variable fallbacks, and validates the result. An absent file
// is not an error — defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		applyEnv(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := unmarshal(path, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.expandEnvVars()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasSuffix(path, ".json") || strings.HasPrefix(trimmed, "{") {
		return json.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the config's invariants.
func (c *Config) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("maxSteps must be > 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderMock, "":
	default:
		return fmt.Errorf("provider must be one of anthropic, openai, mock")
	}
	if c.Logging.Level != "" {
		switch c.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.level must be one of debug, info, warn, error")
		}
	}
	if c.Logging.Format != "" {
		switch c.Logging.Format {
		case "text", "json":
		default:
			return fmt.Errorf("logging.format must be one of text, json")
		}
	}
	return nil
}

func (c *Config) expandEnvVars() {
	c.BaseURL = os.ExpandEnv(c.BaseURL)
	c.APIKey = os.ExpandEnv(c.APIKey)
	c.Model = os.ExpandEnv(c.Model)
	c.Auth.Cookie = os.ExpandEnv(c.Auth.Cookie)
	c.Auth.LoginPrompt = os.ExpandEnv(c.Auth.LoginPrompt)
}

// applyEnv layers LLM_PROVIDER / ANTHROPIC_API_KEY / OPENAI_API_KEY /
// PROMPTQA_MODEL / LLM_MODEL on top of whatever the file set—
// environment variables take precedence since they are the most specific,
// per-invocation override.
func applyEnv(cfg *Config) {
	if p := os.Getenv("LLM_PROVIDER"); p != "" {
		cfg.Provider = Provider(p)
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderAnthropic
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
			cfg.APIKey = k
		}
		if m := os.Getenv("PROMPTQA_MODEL"); m != "" {
			cfg.Model = m
		}
	case ProviderOpenAI:
		if k := os.Getenv("OPENAI_API_KEY"); k != "" {
			cfg.APIKey = k
		}
		if m := os.Getenv("LLM_MODEL"); m != "" {
			cfg.Model = m
		}
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
}

// findConfigFile searches cwd, up to 5 parent directories, then $HOME, for
// the default config filename.
func findConfigFile() string {
	candidates := []string{".promptqa.yaml", ".promptqa.yml", "promptqa.yaml", "promptqa.yml"}

	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
		for _, name := range candidates {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range candidates {
			path := filepath.Join(home, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	return ""
}
