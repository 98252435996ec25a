package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// SystemConfig holds per-backend-system settings. Credentials are read
// from the environment (JIRA_URL/JIRA_TOKEN and friends), never from the
// YAML file.
type SystemConfig struct {
	Enabled bool     `yaml:"enabled" koanf:"enabled"`
	Scope   []string `yaml:"scope,omitempty" koanf:"scope"`
	Limit   int      `yaml:"limit,omitempty" koanf:"limit"`
}

// MCPServerConfig declares an external MCP tool server to mount as an
// additional backend system.
type MCPServerConfig struct {
	ID          string   `yaml:"id" koanf:"id"`
	Name        string   `yaml:"name" koanf:"name"`
	Description string   `yaml:"description" koanf:"description"`
	Command     string   `yaml:"command" koanf:"command"`
	Args        []string `yaml:"args,omitempty" koanf:"args"`
	Tool        string   `yaml:"tool,omitempty" koanf:"tool"`
	Keywords    []string `yaml:"keywords,omitempty" koanf:"keywords"`
}

// Config is the top-level askbridge configuration, corresponding to
// .askbridge.yml.
type Config struct {
	Provider       ProviderType `yaml:"provider" koanf:"provider"`
	Model          string       `yaml:"model" koanf:"model"`
	RateLimitRPM   int          `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	EmbeddingModel string       `yaml:"embedding_model,omitempty" koanf:"embedding_model"`

	Port            int    `yaml:"port" koanf:"port"`
	DataDir         string `yaml:"data_dir" koanf:"data_dir"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`

	HistoryWindow      int `yaml:"history_window" koanf:"history_window"`
	AdapterTimeoutSec  int `yaml:"adapter_timeout_sec" koanf:"adapter_timeout_sec"`
	OverallDeadlineSec int `yaml:"overall_deadline_sec" koanf:"overall_deadline_sec"`
	ResultLimit        int `yaml:"result_limit" koanf:"result_limit"`

	Jira       SystemConfig      `yaml:"jira" koanf:"jira"`
	Confluence SystemConfig      `yaml:"confluence" koanf:"confluence"`
	Bitbucket  SystemConfig      `yaml:"bitbucket" koanf:"bitbucket"`
	MCPServers []MCPServerConfig `yaml:"mcp_servers,omitempty" koanf:"mcp_servers"`
}
