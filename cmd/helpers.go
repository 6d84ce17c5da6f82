package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/config"
	"github.com/stixly/stixly/internal/db"
	"github.com/stixly/stixly/internal/embeddings"
	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/loader"
	"github.com/stixly/stixly/internal/profile"
	"github.com/stixly/stixly/internal/similar"
	"github.com/stixly/stixly/internal/telegram"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `stixly init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w\nRun `stixly init` to fix it", err)
	}
	return cfg, nil
}

// cliLogger returns the logger handed to library packages by one-shot
// commands. Their chatter is only shown with --verbose.
func cliLogger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// openDB opens the SQLite database in the configured data directory.
func openDB(cfg *config.Config) (*db.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

// newClient builds the API client. Init data comes from the config, then
// from the copy saved by `stixly login`.
func newClient(ctx context.Context, cfg *config.Config, database *db.DB, logger *log.Logger) (*api.Client, error) {
	src := telegram.Source{Explicit: cfg.InitData, Store: profile.NewSessionStore(database)}
	initData, err := src.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	opts := []api.Option{
		api.WithBaseURL(cfg.APIBaseURL),
		api.WithRateLimit(cfg.RateLimitRPM),
		api.WithLogger(logger),
	}
	if initData != "" {
		opts = append(opts, api.WithInitData(initData))
	} else if verbose {
		fmt.Fprintln(os.Stderr, "Warning: no init data configured, requests are anonymous")
	}
	return api.New(opts...), nil
}

// withClient opens the config, database and API client for a one-shot
// command and closes them afterwards.
func withClient(cmd *cobra.Command, fn func(client *api.Client) error) error {
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
	return fn(client)
}

// newGallery creates the cached gallery service over client.
func newGallery(cfg *config.Config, client *api.Client, logger *log.Logger, opts gallery.Options) *gallery.Gallery {
	opts.PageSize = cfg.Gallery.PageSize
	cacheOpts := cfg.CacheOptions()
	cacheOpts.Logger = logger
	opts.Cache = cacheOpts
	opts.Logger = logger
	return gallery.New(client, opts)
}

// newLoader creates the sticker loader fetching through client.
func newLoader(cfg *config.Config, client *api.Client, logger *log.Logger) *loader.Loader {
	opts := cfg.LoaderOptions()
	opts.Logger = logger
	return loader.New(loader.ClientFetcher(client), opts)
}

// newIndex creates the similarity index and restores it from the data
// directory. It returns nil without error when no embedding provider is
// configured.
func newIndex(cfg *config.Config, logger *log.Logger) (*similar.Index, error) {
	if cfg.Embeddings.Provider == "" {
		return nil, nil
	}
	e, err := embeddings.New(cfg.EmbeddingsConfig())
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	x, err := similar.NewIndex(e, logger)
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	if err := x.Load(cfg.IndexDir()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load index from %s: %v\n", cfg.IndexDir(), err)
	}
	return x, nil
}

// parseSetID parses a sticker set ID argument.
func parseSetID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid sticker set id %q", arg)
	}
	return id, nil
}

// authorLabel names the author of a set for terminal output.
func authorLabel(s api.StickerSet) string {
	switch {
	case s.Username != "":
		return "@" + s.Username
	case s.FirstName != "" || s.LastName != "":
		return strings.TrimSpace(s.FirstName + " " + s.LastName)
	case s.AuthorID != 0:
		return strconv.FormatInt(s.AuthorID, 10)
	}
	return "-"
}
