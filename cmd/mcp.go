package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol server over stdio that lets AI agents
search and inspect the sticker gallery.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Stdout carries MCP protocol messages.
		logger := log.New(os.Stderr, "", log.LstdFlags)

		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		client, err := newClient(cmd.Context(), cfg, database, logger)
		if err != nil {
			return err
		}
		g := newGallery(cfg, client, logger, gallery.Options{})
		defer g.Close()

		index, err := newIndex(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: find_similar_sticker_sets disabled: %v\n", err)
		}

		fmt.Fprintf(os.Stderr, "stixly MCP server %s starting (API %s)\n", Version, client.BaseURL())
		if index != nil {
			fmt.Fprintf(os.Stderr, "  Similar index: %d sets\n", index.Count())
		}

		return mcp.NewServer(client, g, index).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
