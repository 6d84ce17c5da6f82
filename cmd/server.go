package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/dashboard"
	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/likes"
	"github.com/stixly/stixly/internal/profile"
	"github.com/stixly/stixly/internal/server"
	"github.com/stixly/stixly/internal/similar"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the caching gallery proxy",
	Long: `Starts the local gallery proxy: cached gallery pages, likes, profile
snapshots, sticker files, the dashboard report and generation progress
over WebSocket. With server.redis_url set, gallery pages are shared
through Redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.New(os.Stderr, "", log.LstdFlags)

		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		client, err := newClient(ctx, cfg, database, logger)
		if err != nil {
			return err
		}

		likesSvc := likes.NewService(client, likes.NewStore(database), logger, likes.Options{})
		if err := likesSvc.Load(ctx); err != nil {
			return fmt.Errorf("loading likes: %w", err)
		}
		defer likesSvc.Close()

		// Served pages refresh like states and feed the similar index.
		onPage := []func([]api.StickerSet){func(sets []api.StickerSet) { likesSvc.Init(sets, true) }}
		galleryOpts := gallery.Options{Fallback: cfg.Gallery.Fallback}

		if cfg.Server.RedisURL != "" {
			rc, err := server.NewRedisCache(ctx, cfg.Server.RedisURL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Redis unavailable, using in-memory pages only: %v\n", err)
			} else {
				defer rc.Close()
				galleryOpts.L2 = rc
			}
		}

		index, err := newIndex(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: similar sets disabled: %v\n", err)
		}
		if index != nil {
			feeder := similar.NewFeeder(index)
			onPage = append(onPage, feeder.OnPage)
			defer func() {
				feeder.Close()
				if err := index.Persist(cfg.IndexDir()); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: saving index: %v\n", err)
				}
			}()
		}

		galleryOpts.OnPage = func(sets []api.StickerSet) {
			for _, fn := range onPage {
				fn(sets)
			}
		}
		g := newGallery(cfg, client, logger, galleryOpts)
		defer g.Close()

		l := newLoader(cfg, client, logger)
		defer l.Close()

		dash := dashboard.New(dashboard.Options{
			Gallery:    g,
			Likes:      likesSvc,
			Loader:     l,
			Generation: client,
		})

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowAll:       cfg.Server.AllowAllOrigins,
			BotToken:       cfg.BotToken,
			InitDataMaxAge: cfg.Server.InitDataMaxAge,
		}, server.Deps{
			Gallery:    g,
			Swipe:      gallery.NewSwipeFeed(client, 0, logger),
			Likes:      likesSvc,
			Snapshots:  profile.NewSnapshotStore(database),
			Flags:      profile.NewFlags(database),
			Loader:     l,
			StickerURL: client.StickerURL,
			Dashboard:  dash,
			Similar:    index,
		})

		// Deferred closes must wait until in-flight handlers have drained.
		shutdownDone := make(chan struct{})
		go func() {
			defer close(shutdownDone)
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: shutdown: %v\n", err)
			}
		}()

		fmt.Fprintf(os.Stderr, "stixly server %s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  API: %s\n", client.BaseURL())
		fmt.Fprintf(os.Stderr, "  Database: %s\n", database.Path())
		if galleryOpts.L2 != nil {
			fmt.Fprintf(os.Stderr, "  Redis: %s\n", cfg.Server.RedisURL)
		}
		if index != nil {
			fmt.Fprintf(os.Stderr, "  Similar index: %d sets (%s)\n", index.Count(), index.Embedder())
		}
		if cfg.BotToken == "" {
			fmt.Fprintln(os.Stderr, "  Init data validation: off (no bot_token)")
		}

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			<-shutdownDone
			return err
		}
		<-shutdownDone
		return nil
	},
}

// The API client satisfies the dashboard's generation watcher.
var _ dashboard.GenerationWatcher = (*api.Client)(nil)

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8090, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
