package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize stixly configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for the API base URL, init data and data directory, then writes .stixly.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
