package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <set-id>",
	Short: "Show one sticker set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseSetID(args[0])
		if err != nil {
			return err
		}
		var set *api.StickerSet
		err = withClient(cmd, func(client *api.Client) error {
			set, err = client.GetStickerSet(cmd.Context(), id)
			return err
		})
		if err != nil {
			return fmt.Errorf("fetching set %d: %w", id, err)
		}

		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		}

		fmt.Printf("%s (%s)\n", set.Title, set.Name)
		fmt.Printf("  ID:       %d\n", set.ID)
		fmt.Printf("  Author:   %s\n", authorLabel(*set))
		fmt.Printf("  Stickers: %d\n", len(set.Stickers()))
		if n, ok := set.LikeCount(); ok {
			liked, _ := set.LikedByMe()
			fmt.Printf("  Likes:    %d (liked: %v)\n", n, liked)
		}
		if len(set.Categories) > 0 {
			names := make([]string, 0, len(set.Categories))
			for _, c := range set.Categories {
				names = append(names, c.Name)
			}
			fmt.Printf("  Category: %s\n", strings.Join(names, ", "))
		}
		if set.IsBlocked {
			reason := ""
			if set.BlockReason != nil {
				reason = *set.BlockReason
			}
			fmt.Printf("  Blocked:  %s\n", reason)
		}
		fmt.Printf("  Created:  %s\n", set.CreatedAt)
		fmt.Printf("  Add:      https://t.me/addstickers/%s\n", set.Name)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print raw JSON")
	rootCmd.AddCommand(showCmd)
}
