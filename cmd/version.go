package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/mcp"
)

// Version is set via ldflags at build time.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of stixly",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stixly %s\n", Version)
	},
}

func init() {
	mcp.Version = Version
	rootCmd.AddCommand(versionCmd)
}
