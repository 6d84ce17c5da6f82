package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/config"
)

var (
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "stixly",
	Short: "Sticker gallery client, caching proxy and agent tools",
	Long: `Stixly talks to the sticker gallery API on behalf of a Telegram Mini App
user. It browses and searches sticker sets through a local page cache,
syncs likes, downloads packs, runs a caching proxy for the web client and
exposes the gallery to AI agents via MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.FileName, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
