package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/audit"
	"github.com/karimsalem/askbridge/internal/config"
	"github.com/karimsalem/askbridge/internal/db"
	"github.com/karimsalem/askbridge/internal/embeddings"
	"github.com/karimsalem/askbridge/internal/fanout"
	"github.com/karimsalem/askbridge/internal/llm"
	"github.com/karimsalem/askbridge/internal/memory"
	"github.com/karimsalem/askbridge/internal/orchestrator"
	"github.com/karimsalem/askbridge/internal/registry"
	"github.com/karimsalem/askbridge/internal/router"
	"github.com/karimsalem/askbridge/internal/session"
	"github.com/karimsalem/askbridge/internal/synthesis"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `askbridge init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildRegistry assembles the system catalog from the enabled built-in
// systems plus any configured MCP servers.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	var descriptors []registry.Descriptor
	for _, d := range registry.BuiltinSystems() {
		switch d.ID {
		case registry.SystemJira:
			if cfg.Jira.Enabled {
				descriptors = append(descriptors, d)
			}
		case registry.SystemConfluence:
			if cfg.Confluence.Enabled {
				descriptors = append(descriptors, d)
			}
		case registry.SystemBitbucket:
			if cfg.Bitbucket.Enabled {
				descriptors = append(descriptors, d)
			}
		}
	}

	for _, m := range cfg.MCPServers {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		descriptors = append(descriptors, registry.Descriptor{
			ID:              registry.SystemID(m.ID),
			Name:            name,
			Description:     m.Description,
			PrimaryKeywords: m.Keywords,
		})
	}

	return registry.New(descriptors)
}

// buildAdapters creates one adapter per enabled system. Enabled systems
// without credentials are a startup error: better to fail fast than to
// report every query as an auth failure.
func buildAdapters(cfg *config.Config, env config.Env) ([]adapters.Adapter, error) {
	var list []adapters.Adapter

	if cfg.Jira.Enabled {
		if env.JiraURL == "" || env.JiraToken == "" {
			return nil, fmt.Errorf("jira is enabled but JIRA_URL or JIRA_TOKEN is not set")
		}
		a, err := adapters.NewJiraAdapter(adapters.JiraConfig{
			BaseURL: env.JiraURL,
			Token:   env.JiraToken,
			Scope:   cfg.Jira.Scope,
			Limit:   systemLimit(cfg, cfg.Jira),
		})
		if err != nil {
			return nil, fmt.Errorf("creating jira adapter: %w", err)
		}
		list = append(list, a)
	}

	if cfg.Confluence.Enabled {
		if env.ConfluenceURL == "" || env.ConfluenceToken == "" {
			return nil, fmt.Errorf("confluence is enabled but CONFLUENCE_URL or CONFLUENCE_TOKEN is not set")
		}
		a, err := adapters.NewConfluenceAdapter(adapters.ConfluenceConfig{
			BaseURL: env.ConfluenceURL,
			Token:   env.ConfluenceToken,
			Scope:   cfg.Confluence.Scope,
			Limit:   systemLimit(cfg, cfg.Confluence),
		})
		if err != nil {
			return nil, fmt.Errorf("creating confluence adapter: %w", err)
		}
		list = append(list, a)
	}

	if cfg.Bitbucket.Enabled {
		if env.BitbucketURL == "" || env.BitbucketToken == "" {
			return nil, fmt.Errorf("bitbucket is enabled but BITBUCKET_URL or BITBUCKET_TOKEN is not set")
		}
		a, err := adapters.NewBitbucketAdapter(adapters.BitbucketConfig{
			BaseURL: env.BitbucketURL,
			Token:   env.BitbucketToken,
			Scope:   cfg.Bitbucket.Scope,
			Limit:   systemLimit(cfg, cfg.Bitbucket),
		})
		if err != nil {
			return nil, fmt.Errorf("creating bitbucket adapter: %w", err)
		}
		list = append(list, a)
	}

	for _, m := range cfg.MCPServers {
		a, err := adapters.NewMCPAdapter(adapters.MCPConfig{
			SystemID: registry.SystemID(m.ID),
			Command:  m.Command,
			Args:     m.Args,
			Env:      os.Environ(),
			Tool:     m.Tool,
		})
		if err != nil {
			return nil, fmt.Errorf("creating mcp adapter %q: %w", m.ID, err)
		}
		list = append(list, a)
	}

	return list, nil
}

func systemLimit(cfg *config.Config, sys config.SystemConfig) int {
	if sys.Limit > 0 {
		return sys.Limit
	}
	return cfg.ResultLimit
}

// createLLMProviderFromConfig creates the synthesis provider, wrapped in
// a rate limiter when rate_limit_rpm is set.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM)
	}
	return provider, nil
}

// createRecall builds the session recall index when an embedder is
// available. Recall is optional: without embeddings the orchestrator
// simply skips related-result lookups.
func createRecall(cfg *config.Config) *memory.Recall {
	embedder := createEmbedderFromConfig(cfg)
	if embedder == nil {
		return nil
	}
	return memory.New(embedder)
}

func createEmbedderFromConfig(cfg *config.Config) embeddings.Embedder {
	model := cfg.EmbeddingModel

	if cfg.Provider == config.ProviderOllama {
		if model == "" {
			model = "nomic-embed-text"
		}
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return embeddings.NewOllamaEmbedder(host, model, 768)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model))
}

// app bundles the wired orchestration stack for one command invocation.
type app struct {
	cfg      *config.Config
	db       *db.DB
	orch     *orchestrator.Orchestrator
	sessions *session.Store
	audit    *audit.Store
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// buildApp wires the full stack: registry, router, adapters, executor,
// synthesizer, stores. onProgress may be nil.
func buildApp(cfg *config.Config, onProgress fanout.ProgressFunc) (*app, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	rtr, err := router.New(reg)
	if err != nil {
		return nil, err
	}

	adapterList, err := buildAdapters(cfg, config.LoadEnv())
	if err != nil {
		return nil, err
	}

	executor := fanout.New(adapterList, fanout.Options{
		PerCallTimeout:  time.Duration(cfg.AdapterTimeoutSec) * time.Second,
		OverallDeadline: time.Duration(cfg.OverallDeadlineSec) * time.Second,
		OnProgress:      onProgress,
	})

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	synth := synthesis.New(provider, synthesis.Options{MaxItems: 2 * cfg.ResultLimit})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	database, err := db.Open(filepath.Join(cfg.DataDir, "askbridge.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sessions := session.NewStore(database)
	auditStore := audit.NewStore(database)

	orch, err := orchestrator.New(orchestrator.Options{
		Registry:      reg,
		Router:        rtr,
		Executor:      executor,
		Synthesizer:   synth,
		Sessions:      sessions,
		Recall:        createRecall(cfg),
		Audit:         auditStore,
		HistoryWindow: cfg.HistoryWindow,
	})
	if err != nil {
		database.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		db:       database,
		orch:     orch,
		sessions: sessions,
		audit:    auditStore,
	}, nil
}
