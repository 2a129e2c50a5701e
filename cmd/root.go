package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "footballer",
	Short: "Situational psychological assessment for football players",
	Long: `Footballer runs an adaptive, conversational assessment: players respond
to generated match situations, follow-up questions explore traits the answers
left unclear, and each session ends with a seven-trait behavioral profile.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
