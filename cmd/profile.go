package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/profile"
)

var (
	profilePages int
	profileJSON  bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <user-id>",
	Short: "Show a user's profile and published sticker sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || userID <= 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var p *profile.CachedProfile
		err = withClient(cmd, func(client *api.Client) error {
			profiles := profile.NewCache(cfg.Cache.TTL, cliLogger())
			defer profiles.Close()
			pl := profile.NewLoader(client, profiles)

			ctx := cmd.Context()
			p, err = pl.Load(ctx, userID, cfg.Gallery.PageSize)
			for i := 1; err == nil && i < profilePages; i++ {
				if p.Pagination.CurrentPage >= p.Pagination.TotalPages-1 {
					break
				}
				p, err = pl.LoadMore(ctx, userID, cfg.Gallery.PageSize)
			}
			return err
		})
		if err != nil {
			return err
		}

		if profileJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}

		u := p.UserInfo
		var username *string
		if u.Username != "" {
			username = &u.Username
		}
		fmt.Printf("%s (id %d)\n", displayName(username, u.FirstName, u.LastName), u.ID)
		if u.Role != "" {
			fmt.Printf("  Role:    %s\n", u.Role)
		}
		fmt.Printf("  Balance: %d ART\n", u.ArtBalance)
		fmt.Printf("  Sets:    %d\n\n", p.Pagination.TotalElements)
		printSets(p.StickerSets)
		return nil
	},
}

func init() {
	profileCmd.Flags().IntVar(&profilePages, "pages", 1, "number of set pages to load")
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "print raw JSON")
	rootCmd.AddCommand(profileCmd)
}
