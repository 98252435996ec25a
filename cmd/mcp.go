package cmd

import (
	"github.com/spf13/cobra"

	"github.com/karimsalem/askbridge/internal/mcpserve"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run askbridge as an MCP server on stdio",
	Long: `Exposes the query orchestrator as MCP tools (ask, list_systems) over
stdio, so editor agents can ask questions across JIRA, Confluence and
Bitbucket. Stdout carries protocol messages; logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserve.Version = Version
		return mcpserve.NewServer(a.orch).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
