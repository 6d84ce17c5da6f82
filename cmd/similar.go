package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/similar"
)

var (
	similarSync   bool
	similarPages  int
	similarSet    int64
	similarAuthor int64
	similarLimit  int
	similarJSON   bool
)

var similarCmd = &cobra.Command{
	Use:   "similar [query]",
	Short: "Find sticker sets by meaning",
	Long: `Searches the local similarity index, either by free text or by an
existing set (--set). --sync first indexes gallery pages; the index is
saved under <data_dir>/index and also grows while the server runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Embeddings.Provider == "" {
			return fmt.Errorf("no embeddings.provider configured\nRun `stixly init` and pick openai or ollama")
		}
		if len(args) == 0 && similarSet == 0 && !similarSync {
			return fmt.Errorf("give a query, --set or --sync")
		}

		ctx := cmd.Context()
		logger := cliLogger()
		index, err := newIndex(cfg, logger)
		if err != nil {
			return err
		}

		if similarSync {
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close()
			client, err := newClient(ctx, cfg, database, logger)
			if err != nil {
				return err
			}
			g := newGallery(cfg, client, logger, gallery.Options{})
			defer g.Close()

			n, err := similar.Sync(ctx, index, g, gallery.Listing{}, similarPages)
			if err != nil {
				return err
			}
			if err := index.Persist(cfg.IndexDir()); err != nil {
				return fmt.Errorf("saving index: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Indexed %d sets, %d in index\n", n, index.Count())
		}

		var f *similar.Filter
		if similarAuthor != 0 {
			f = &similar.Filter{AuthorID: similarAuthor}
		}

		var matches []similar.Match
		switch {
		case similarSet != 0:
			matches, err = index.Like(ctx, similarSet, similarLimit, f)
		case len(args) == 1:
			matches, err = index.Search(ctx, strings.TrimSpace(args[0]), similarLimit, f)
		default:
			return nil
		}
		if err != nil {
			return err
		}

		if similarJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		}
		if len(matches) == 0 {
			fmt.Println("No matches. Run with --sync to index the gallery.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer tw.Flush()
		fmt.Fprintln(tw, "SCORE\tID\tTITLE\tNAME")
		for _, m := range matches {
			fmt.Fprintf(tw, "%.3f\t%d\t%s\t%s\n", m.Similarity, m.SetID, m.Title, m.Name)
		}
		return nil
	},
}

func init() {
	similarCmd.Flags().BoolVar(&similarSync, "sync", false, "index gallery pages before searching")
	similarCmd.Flags().IntVar(&similarPages, "pages", 5, "pages to index with --sync (0 for all)")
	similarCmd.Flags().Int64Var(&similarSet, "set", 0, "find sets similar to this set ID")
	similarCmd.Flags().Int64Var(&similarAuthor, "author", 0, "only sets by this author ID")
	similarCmd.Flags().IntVar(&similarLimit, "limit", 10, "number of results")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "print raw JSON")
	rootCmd.AddCommand(similarCmd)
}
