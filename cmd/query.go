package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/karimsalem/askbridge/internal/config"
	"github.com/karimsalem/askbridge/internal/orchestrator"
	"github.com/karimsalem/askbridge/internal/progress"
	"github.com/karimsalem/askbridge/internal/registry"
)

var (
	queryMCPs    []string
	querySession string
	queryJSON    bool
	queryCheck   bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question across the configured systems",
	Long: `Routes the question to the relevant systems, queries them concurrently
and prints a synthesized answer with source attribution. Use --mcps to
bypass routing and force a specific system set.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if queryCheck {
			return runCheck(cmd.Context(), cfg)
		}

		if len(args) == 0 {
			return fmt.Errorf("question is required (or use --check)")
		}
		question := strings.Join(args, " ")

		reporter := progress.NewReporter()
		var startOnce sync.Once
		a, err := buildApp(cfg, func(done, total int, system registry.SystemID) {
			startOnce.Do(func() { reporter.Start(total) })
			reporter.Update(done, string(system))
		})
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.orch.Execute(cmd.Context(), orchestrator.Request{
			Query:        question,
			SessionID:    querySession,
			SelectedMCPs: queryMCPs,
		})
		reporter.Finish()
		if err != nil {
			return err
		}

		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		fmt.Println(resp.Synthesis)
		if len(resp.MCPsUsed) > 0 {
			fmt.Printf("\nSources: %s\n", joinIDs(resp.MCPsUsed))
		}
		if len(resp.SuggestedMCPs) > 0 {
			fmt.Printf("Worth checking next: %s\n", joinIDs(resp.SuggestedMCPs))
		}
		if resp.Degraded {
			fmt.Fprintln(os.Stderr, "Note: some systems could not be reached; the answer may be incomplete.")
		}
		return nil
	},
}

// runCheck pings every configured backend and reports reachability.
func runCheck(ctx context.Context, cfg *config.Config) error {
	adapterList, err := buildAdapters(cfg, config.LoadEnv())
	if err != nil {
		return err
	}

	failures := 0
	for _, a := range adapterList {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := a.Ping(pingCtx)
		cancel()
		if err != nil {
			failures++
			fmt.Printf("  %-12s FAILED: %v\n", a.ID(), err)
			continue
		}
		fmt.Printf("  %-12s OK\n", a.ID())
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d systems unreachable", failures, len(adapterList))
	}
	fmt.Printf("All %d systems reachable.\n", len(adapterList))
	return nil
}

func joinIDs(ids []registry.SystemID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func init() {
	queryCmd.Flags().StringSliceVar(&queryMCPs, "mcps", nil, "force these systems instead of automatic routing")
	queryCmd.Flags().StringVar(&querySession, "session", "", "session ID for conversation continuity")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the full response as JSON")
	queryCmd.Flags().BoolVar(&queryCheck, "check", false, "ping the configured systems and exit")
	rootCmd.AddCommand(queryCmd)
}
