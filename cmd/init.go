package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/karimsalem/askbridge/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(config.DefaultConfigFile); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", config.DefaultConfigFile)
		}

		_, err := config.RunWizard()
		return err
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
