package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (ASKBRIDGE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: ASKBRIDGE_PROVIDER -> provider,
	// ASKBRIDGE_JIRA_ENABLED -> jira.enabled, etc.
	if err := k.Load(env.Provider("ASKBRIDGE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "ASKBRIDGE_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

// Validate checks that the configuration contains valid values. A failure
// here is fatal at startup: the service must not accept queries with a
// broken configuration.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, ollama", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}

	if c.HistoryWindow < 0 {
		return fmt.Errorf("history_window must be non-negative")
	}
	if c.AdapterTimeoutSec <= 0 {
		return fmt.Errorf("adapter_timeout_sec must be positive")
	}
	if c.OverallDeadlineSec <= 0 {
		return fmt.Errorf("overall_deadline_sec must be positive")
	}
	if c.OverallDeadlineSec < c.AdapterTimeoutSec {
		return fmt.Errorf("overall_deadline_sec must be at least adapter_timeout_sec")
	}

	if !c.Jira.Enabled && !c.Confluence.Enabled && !c.Bitbucket.Enabled && len(c.MCPServers) == 0 {
		return fmt.Errorf("no backend systems enabled")
	}

	for i, m := range c.MCPServers {
		if m.ID == "" {
			return fmt.Errorf("mcp_servers[%d]: id is required", i)
		}
		if m.Command == "" {
			return fmt.Errorf("mcp_servers[%d]: command is required", i)
		}
	}

	return nil
}

// Env holds the backend credentials read at startup. Supplied via
// environment only and never mutated at runtime.
type Env struct {
	JiraURL         string
	JiraToken       string
	ConfluenceURL   string
	ConfluenceToken string
	BitbucketURL    string
	BitbucketToken  string
}

// LoadEnv reads the backend credentials from the environment.
func LoadEnv() Env {
	return Env{
		JiraURL:         strings.TrimSpace(os.Getenv("JIRA_URL")),
		JiraToken:       strings.TrimSpace(os.Getenv("JIRA_TOKEN")),
		ConfluenceURL:   strings.TrimSpace(os.Getenv("CONFLUENCE_URL")),
		ConfluenceToken: strings.TrimSpace(os.Getenv("CONFLUENCE_TOKEN")),
		BitbucketURL:    strings.TrimSpace(os.Getenv("BITBUCKET_URL")),
		BitbucketToken:  strings.TrimSpace(os.Getenv("BITBUCKET_TOKEN")),
	}
}
