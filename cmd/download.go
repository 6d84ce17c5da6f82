package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/downloads"
	"github.com/stixly/stixly/internal/progress"
)

var (
	downloadDir   string
	downloadLimit int
)

var downloadCmd = &cobra.Command{
	Use:   "download <set-id>",
	Short: "Download every sticker of a set",
	Long: `Downloads the stickers of a set into <dir>/<set name>/ through the
prioritized loader and records the download in the local database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseSetID(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		logger := cliLogger()
		client, err := newClient(ctx, cfg, database, logger)
		if err != nil {
			return err
		}
		set, err := client.GetStickerSet(ctx, id)
		if err != nil {
			return fmt.Errorf("fetching set %d: %w", id, err)
		}

		l := newLoader(cfg, client, logger)
		defer l.Close()

		dir := downloadDir
		if dir == "" {
			dir = cfg.DownloadDir()
		}
		d := downloads.New(l, client.StickerURL, downloads.NewStore(database))
		rec, err := d.Download(ctx, *set, dir, progress.NewReporter("Downloading "+set.Title))
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Saved %d stickers (%s) to %s\n", rec.Files, humanize.Bytes(uint64(rec.Bytes)), rec.Dir)
		return nil
	},
}

var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "List recent downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		recs, err := downloads.NewStore(database).List(cmd.Context(), downloadLimit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No downloads yet.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer tw.Flush()
		fmt.Fprintln(tw, "WHEN\tSET\tFILES\tSIZE\tDIR")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", humanize.Time(r.CreatedAt), r.PackName, r.Files, humanize.Bytes(uint64(r.Bytes)), r.Dir)
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadDir, "dir", "o", "", "target directory (default <data_dir>/downloads)")
	downloadsCmd.Flags().IntVar(&downloadLimit, "limit", 20, "number of downloads to list")
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(downloadsCmd)
}
