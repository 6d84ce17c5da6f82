package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
)

var (
	generateStyle    int64
	generateSeed     int64
	generateSaveTo   string
	generateEmoji    string
	generateInterval time.Duration
	generateTimeout  time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a sticker image from a prompt",
	Long: `Starts an image generation task and polls it until it completes, fails
or times out. With --save the finished image is added to a sticker set.`,
	Args: cobra.ExactArgs(1),
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

		client, err := newClient(cmd.Context(), cfg, database, cliLogger())
		if err != nil {
			return err
		}

		req := api.GenerationRequest{Prompt: args[0]}
		if cmd.Flags().Changed("style") {
			req.StylePresetID = &generateStyle
		}
		if cmd.Flags().Changed("seed") {
			req.Seed = &generateSeed
		}

		task, err := client.StartGeneration(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("starting generation: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Task %s started\n", task.TaskID)

		ctx := cmd.Context()
		if generateTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, generateTimeout)
			defer cancel()
		}
		st, err := client.WaitForGeneration(ctx, task.TaskID, generateInterval, func(s api.GenerationStatus) {
			fmt.Fprintf(os.Stderr, "  %s\n", s.Status)
		})
		if err != nil {
			return fmt.Errorf("waiting for task %s: %w", task.TaskID, err)
		}
		if st.Status != api.GenerationCompleted {
			msg := st.ErrorMessage
			if msg == "" {
				msg = "no details"
			}
			return fmt.Errorf("generation %s: %s", st.Status, msg)
		}
		fmt.Println(st.ImageURL)

		if generateSaveTo == "" {
			return nil
		}
		saved, err := client.SaveImageToStickerSet(cmd.Context(), api.SaveImageRequest{
			ImageID:        st.ImageID,
			StickerSetName: generateSaveTo,
			Emoji:          generateEmoji,
		})
		if err != nil {
			return fmt.Errorf("saving image: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Added to %s\n", saved.StickerSetName)
		return nil
	},
}

func init() {
	generateCmd.Flags().Int64Var(&generateStyle, "style", 0, "style preset ID")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "generation seed")
	generateCmd.Flags().StringVar(&generateSaveTo, "save", "", "add the image to this sticker set name")
	generateCmd.Flags().StringVar(&generateEmoji, "emoji", "", "emoji for the saved sticker")
	generateCmd.Flags().DurationVar(&generateInterval, "interval", 2*time.Second, "status poll interval")
	generateCmd.Flags().DurationVar(&generateTimeout, "timeout", 5*time.Minute, "give up after this long (0 waits forever)")
	rootCmd.AddCommand(generateCmd)
}
