package config

// DefaultConfigFile is the conventional config path.
const DefaultConfigFile = ".askbridge.yml"

// DefaultConfig returns a Config with sensible defaults: all three
// built-in systems enabled, the observed 5-turn context window, and the
// timeouts the reference deployment used.
func DefaultConfig() *Config {
	return &Config{
		Provider:     ProviderOpenAI,
		Model:        "gpt-4o-mini",
		RateLimitRPM: 60,

		Port:    8000,
		DataDir: ".askbridge",

		HistoryWindow:      5,
		AdapterTimeoutSec:  30,
		OverallDeadlineSec: 60,
		ResultLimit:        10,

		Jira:       SystemConfig{Enabled: true},
		Confluence: SystemConfig{Enabled: true},
		Bitbucket:  SystemConfig{Enabled: true},
	}
}
