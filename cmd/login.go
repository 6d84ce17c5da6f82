package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/profile"
	"github.com/stixly/stixly/internal/telegram"
)

var loginNoCheck bool

var loginCmd = &cobra.Command{
	Use:   "login <init-data|launch-url>",
	Short: "Save Telegram init data for later commands",
	Long: `Stores init data in the local database. Commands use it whenever
init_data is not set in the config. A full Mini App launch URL is accepted;
the tgWebAppData parameter is taken from it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.TrimSpace(args[0])
		if v := telegram.InitDataFromURL(raw); v != "" {
			raw = v
		}
		data, err := telegram.ParseInitData(raw)
		if err != nil {
			return err
		}
		if data.Hash == "" && data.Signature == "" {
			return fmt.Errorf("init data is not signed")
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
		sessions := profile.NewSessionStore(database)
		if err := sessions.SaveInitData(ctx, raw); err != nil {
			return err
		}

		who := "unknown user"
		if data.User != nil {
			who = data.User.DisplayName()
		}
		fmt.Fprintf(os.Stderr, "Saved init data for %s (auth date %s)\n", who, data.AuthDate.Format("2006-01-02 15:04"))
		if cfg.InitData != "" {
			fmt.Fprintln(os.Stderr, "Note: init_data in the config takes precedence over the saved copy")
		}
		if loginNoCheck {
			return nil
		}

		client, err := newClient(ctx, cfg, database, cliLogger())
		if err != nil {
			return err
		}
		st, err := client.CheckAuthStatus(ctx)
		if err != nil {
			return fmt.Errorf("checking auth status: %w", err)
		}
		if !st.Authenticated {
			return fmt.Errorf("API rejected the init data: %s", st.Message)
		}
		fmt.Fprintf(os.Stderr, "Authenticated (role %s)\n", st.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved init data",
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

		if err := profile.NewSessionStore(database).ClearInitData(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved init data removed")
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginNoCheck, "no-check", false, "do not verify the init data against the API")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
