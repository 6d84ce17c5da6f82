package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/gallery"
)

var (
	galleryPage     int
	galleryPages    int
	galleryAuthor   int64
	gallerySort     string
	galleryDir      string
	galleryCategory []string
	galleryType     string
	galleryLiked    bool
	galleryMatch    []string
	galleryShuffle  string
	galleryJSON     bool
)

var galleryCmd = &cobra.Command{
	Use:   "gallery [query]",
	Short: "List or search published sticker sets",
	Long: `Lists gallery pages through the local page cache. With a query the
gallery search endpoint is used; --author narrows to one author. --match
keeps only sets whose name or title matches a glob such as "*cat*".
--shuffle reorders the result; the same seed gives the same order.`,
	Args: cobra.MaximumNArgs(1),
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

		ctx := cmd.Context()
		logger := cliLogger()
		client, err := newClient(ctx, cfg, database, logger)
		if err != nil {
			return err
		}
		g := newGallery(cfg, client, logger, gallery.Options{})
		defer g.Close()

		l := gallery.Listing{
			AuthorID: galleryAuthor,
			Filter: api.StickerSetFilter{
				Sort:         gallerySort,
				Direction:    galleryDir,
				CategoryKeys: galleryCategory,
				Type:         galleryType,
				LikedOnly:    galleryLiked,
			},
		}
		if len(args) == 1 {
			l.Query = strings.TrimSpace(args[0])
		}

		sets, last, err := loadPages(ctx, g, l, galleryPage, galleryPages)
		if err != nil {
			return err
		}
		sets, err = gallery.MatchNames(sets, galleryMatch)
		if err != nil {
			return err
		}

		if galleryShuffle != "" {
			sets = gallery.SeededShuffle(galleryShuffle, sets)
		}

		if galleryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sets)
		}

		printSets(sets)
		fmt.Fprintf(os.Stderr, "\n%d sets, pages %d-%d of %d\n", len(sets), galleryPage+1, last.Number+1, max(last.TotalPages, 1))
		return nil
	},
}

// loadPages loads count pages of l starting at first. It stops early at
// the last page and returns the final page it loaded.
func loadPages(ctx context.Context, g *gallery.Gallery, l gallery.Listing, first, count int) ([]api.StickerSet, *api.StickerSetPage, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var sets []api.StickerSet
	var pg *api.StickerSetPage
	for page := first; page < first+max(count, 1); page++ {
		var err error
		pg, err = g.Load(ctx, l, page)
		if err != nil {
			return nil, nil, fmt.Errorf("loading page %d: %w", page, err)
		}
		sets = append(sets, pg.Content...)
		if pg.Last || page >= pg.TotalPages-1 {
			break
		}
	}
	return sets, pg, nil
}

func printSets(sets []api.StickerSet) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tNAME\tAUTHOR\tSTICKERS\tLIKES")
	for _, s := range sets {
		likes := "-"
		if n, ok := s.LikeCount(); ok {
			likes = fmt.Sprint(n)
			if liked, _ := s.LikedByMe(); liked {
				likes += " ♥"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", s.ID, s.Title, s.Name, authorLabel(s), len(s.Stickers()), likes)
	}
	tw.Flush()
}

func init() {
	galleryCmd.Flags().IntVar(&galleryPage, "page", 0, "first page to load (zero based)")
	galleryCmd.Flags().IntVar(&galleryPages, "pages", 1, "number of pages to load")
	galleryCmd.Flags().Int64Var(&galleryAuthor, "author", 0, "only sets by this author ID")
	galleryCmd.Flags().StringVar(&gallerySort, "sort", "", "sort field (createdAt, likesCount)")
	galleryCmd.Flags().StringVar(&galleryDir, "direction", "", "sort direction (ASC, DESC)")
	galleryCmd.Flags().StringSliceVar(&galleryCategory, "category", nil, "category keys")
	galleryCmd.Flags().StringVar(&galleryType, "type", "", "set type filter")
	galleryCmd.Flags().BoolVar(&galleryLiked, "liked", false, "only sets liked by the current user")
	galleryCmd.Flags().StringArrayVar(&galleryMatch, "match", nil, "glob on set name or title (repeatable)")
	galleryCmd.Flags().StringVar(&galleryShuffle, "shuffle", "", "shuffle the result with this seed")
	galleryCmd.Flags().BoolVar(&galleryJSON, "json", false, "print raw JSON")
	rootCmd.AddCommand(galleryCmd)
}
