package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/likes"
)

var likeCmd = &cobra.Command{
	Use:   "like <set-id>",
	Short: "Toggle the like on a sticker set",
	Long: `Toggles the like on a set. The change is stored locally, synced to the
API and rolled back when the sync fails.`,
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

		svc := likes.NewService(client, likes.NewStore(database), logger, likes.Options{})
		if err := svc.Load(ctx); err != nil {
			return fmt.Errorf("loading likes: %w", err)
		}
		if set, err := client.GetStickerSet(ctx, id); err == nil {
			svc.Init([]api.StickerSet{*set}, false)
		} else if !errors.Is(err, api.ErrNotFound) {
			logger.Printf("like: refreshing set %d: %v", id, err)
		}

		if _, err := svc.Toggle(id); err != nil {
			return err
		}
		svc.Wait()

		st := svc.Get(id)
		if st.Error != "" {
			return fmt.Errorf("like not saved: %s", st.Error)
		}
		verb := "Unliked"
		if st.IsLiked {
			verb = "Liked"
		}
		fmt.Printf("%s set %d (%d likes)\n", verb, id, st.LikesCount)
		return nil
	},
}

var likesCmd = &cobra.Command{
	Use:   "likes",
	Short: "List locally known likes",
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

		svc := likes.NewService(nil, likes.NewStore(database), cliLogger(), likes.Options{})
		if err := svc.Load(cmd.Context()); err != nil {
			return fmt.Errorf("loading likes: %w", err)
		}
		n := 0
		for _, st := range svc.All() {
			if !st.IsLiked {
				continue
			}
			fmt.Printf("%d\t%d likes\n", st.PackID, st.LikesCount)
			n++
		}
		if n == 0 {
			fmt.Println("No liked sets yet.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(likesCmd)
}
