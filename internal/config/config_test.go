package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".askbridge.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != ProviderOpenAI {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.HistoryWindow != 5 {
		t.Errorf("HistoryWindow = %d", cfg.HistoryWindow)
	}
	if !cfg.Jira.Enabled || !cfg.Confluence.Enabled || !cfg.Bitbucket.Enabled {
		t.Error("built-in systems should default to enabled")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
provider: anthropic
model: claude-sonnet-4-5
port: 9001
history_window: 3
jira:
  enabled: false
confluence:
  scope:
    - OPS
    - PLATFORM
mcp_servers:
  - id: runbooks
    name: Runbooks
    command: runbook-mcp
    tool: search
    keywords: [runbook, oncall]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != ProviderAnthropic {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Port != 9001 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.HistoryWindow != 3 {
		t.Errorf("HistoryWindow = %d", cfg.HistoryWindow)
	}
	if cfg.Jira.Enabled {
		t.Error("jira should be disabled")
	}
	if len(cfg.Confluence.Scope) != 2 || cfg.Confluence.Scope[0] != "OPS" {
		t.Errorf("Confluence.Scope = %v", cfg.Confluence.Scope)
	}
	if len(cfg.MCPServers) != 1 || cfg.MCPServers[0].ID != "runbooks" {
		t.Fatalf("MCPServers = %+v", cfg.MCPServers)
	}
	if len(cfg.MCPServers[0].Keywords) != 2 {
		t.Errorf("Keywords = %v", cfg.MCPServers[0].Keywords)
	}
	// Untouched keys keep their defaults.
	if cfg.AdapterTimeoutSec != 30 {
		t.Errorf("AdapterTimeoutSec = %d", cfg.AdapterTimeoutSec)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "provider: openai\nmodel: gpt-4o-mini\n")
	t.Setenv("ASKBRIDGE_PROVIDER", "ollama")
	t.Setenv("ASKBRIDGE_JIRA_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOllama {
		t.Errorf("Provider = %q, want env override", cfg.Provider)
	}
	if cfg.Jira.Enabled {
		t.Error("jira should be disabled via env")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderAnthropic
	cfg.Model = "claude-sonnet-4-5"
	cfg.Bitbucket.Enabled = false

	path := filepath.Join(t.TempDir(), ".askbridge.yml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Provider != ProviderAnthropic || got.Model != "claude-sonnet-4-5" {
		t.Errorf("round trip lost provider/model: %q %q", got.Provider, got.Model)
	}
	if got.Bitbucket.Enabled {
		t.Error("round trip lost bitbucket.enabled = false")
	}
}

func TestValidate(t *testing.T) {
	valid := DefaultConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "bard" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"negative window", func(c *Config) { c.HistoryWindow = -1 }},
		{"zero adapter timeout", func(c *Config) { c.AdapterTimeoutSec = 0 }},
		{"deadline below timeout", func(c *Config) { c.OverallDeadlineSec = c.AdapterTimeoutSec - 1 }},
		{"nothing enabled", func(c *Config) {
			c.Jira.Enabled = false
			c.Confluence.Enabled = false
			c.Bitbucket.Enabled = false
		}},
		{"mcp server without command", func(c *Config) {
			c.MCPServers = []MCPServerConfig{{ID: "x"}}
		}},
		{"mcp server without id", func(c *Config) {
			c.MCPServers = []MCPServerConfig{{Command: "x"}}
		}},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		c.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate should fail", c.name)
		}
	}
}

func TestLoadEnvCredentials(t *testing.T) {
	t.Setenv("JIRA_URL", " https://jira.internal ")
	t.Setenv("JIRA_TOKEN", "tok-1")
	t.Setenv("CONFLUENCE_URL", "")

	env := LoadEnv()
	if env.JiraURL != "https://jira.internal" {
		t.Errorf("JiraURL = %q, want trimmed", env.JiraURL)
	}
	if env.JiraToken != "tok-1" {
		t.Errorf("JiraToken = %q", env.JiraToken)
	}
	if env.ConfluenceURL != "" {
		t.Errorf("ConfluenceURL = %q, want empty", env.ConfluenceURL)
	}
}
