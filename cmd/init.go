package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the LLM provider and session shape, and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
