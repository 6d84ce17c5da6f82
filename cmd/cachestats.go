package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/loader"
	"github.com/stixly/stixly/internal/profile"
	"github.com/stixly/stixly/internal/telegram"
)

var cacheStatsAddr string

var cacheStatsCmd = &cobra.Command{
	Use:   "cache-stats",
	Short: "Show cache statistics of a running server",
	Long: `Reads the gallery page cache, request deduplication and sticker loader
statistics from a running stixly server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr := cacheStatsAddr
		if addr == "" {
			addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}
		addr = strings.TrimRight(addr, "/")

		// The gallery stats route sits behind init data validation.
		var initData string
		if database, err := openDB(cfg); err == nil {
			initData, _ = telegram.Source{Explicit: cfg.InitData, Store: profile.NewSessionStore(database)}.Resolve(cmd.Context())
			database.Close()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		var gs gallery.Stats
		if err := getJSON(ctx, addr+"/api/gallery/stats", initData, &gs); err != nil {
			return err
		}
		var ls loader.Stats
		if err := getJSON(ctx, addr+"/api/loader/stats", initData, &ls); err != nil {
			return err
		}

		fmt.Println("Gallery pages")
		fmt.Printf("  listings: %d\n", gs.Listings)
		fmt.Printf("  %s\n", gs.Pages)
		fmt.Printf("  dedup: %d cached, %d pending\n", gs.Dedup.CacheSize, gs.Dedup.PendingRequests)
		fmt.Println("Sticker loader")
		fmt.Printf("  queued=%d active=%d (high %d, low %d) max=%d\n", ls.Queued, ls.Active, ls.ActiveHigh, ls.ActiveLow, ls.MaxConcurrency)
		kinds := make([]string, 0, len(ls.Caches))
		for k := range ls.Caches {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("  %-8s %s\n", k, ls.Caches[loader.Kind(k)])
		}
		return nil
	},
}

func getJSON(ctx context.Context, url, initData string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if initData != "" {
		req.Header.Set(telegram.HeaderInitData, initData)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("is the server running? %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %s: %s", url, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func init() {
	cacheStatsCmd.Flags().StringVar(&cacheStatsAddr, "addr", "", "server address (default http://localhost:<server.port>)")
	rootCmd.AddCommand(cacheStatsCmd)
}
