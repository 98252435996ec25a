package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .askbridge.yml.
// Credentials are deliberately not asked for: they stay in the
// environment (JIRA_URL, JIRA_TOKEN, ...).
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to askbridge! Let's configure your assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider for synthesis",
		Items: []string{"openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model name",
		Default: defaultModelFor(cfg.Provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.Model = model

	// 3. Enabled systems.
	for _, sys := range []struct {
		name string
		cfg  *SystemConfig
	}{
		{"JIRA", &cfg.Jira},
		{"Confluence", &cfg.Confluence},
		{"Bitbucket", &cfg.Bitbucket},
	} {
		enablePrompt := promptui.Select{
			Label: fmt.Sprintf("Enable %s", sys.name),
			Items: []string{"yes", "no"},
		}
		_, answer, err := enablePrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("%s selection: %w", sys.name, err)
		}
		sys.cfg.Enabled = answer == "yes"
	}

	// 4. Service port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	// 5. History window.
	windowPrompt := promptui.Prompt{
		Label:   "Conversation history window (turns)",
		Default: strconv.Itoa(cfg.HistoryWindow),
	}
	windowStr, err := windowPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("history window: %w", err)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(windowStr)); err == nil && n >= 0 {
		cfg.HistoryWindow = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}

	if err := cfg.Save(DefaultConfigFile); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration saved to %s\n", DefaultConfigFile)
	fmt.Println("Remember to export backend credentials: JIRA_URL, JIRA_TOKEN, CONFLUENCE_URL, CONFLUENCE_TOKEN, BITBUCKET_URL, BITBUCKET_TOKEN.")

	return cfg, nil
}

func defaultModelFor(p ProviderType) string {
	switch p {
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gpt-4o-mini"
	}
}
