package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
)

var (
	leaderboardPage int
	leaderboardSize int
)

var leaderboardCmd = &cobra.Command{
	Use:       "leaderboard [users|authors]",
	Short:     "Show the users or authors leaderboard",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"users", "authors"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := "users"
		if len(args) == 1 {
			kind = strings.ToLower(args[0])
		}
		if kind != "users" && kind != "authors" {
			return fmt.Errorf("unknown leaderboard %q: want users or authors", kind)
		}

		return withClient(cmd, func(client *api.Client) error {
			return printLeaderboard(cmd.Context(), client, kind)
		})
	},
}

func printLeaderboard(ctx context.Context, client *api.Client, kind string) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "#\tNAME\tTOTAL\tPUBLIC\tPRIVATE")
	rank := leaderboardPage*leaderboardSize + 1

	if kind == "authors" {
		lb, err := client.GetAuthorsLeaderboard(ctx, leaderboardPage, leaderboardSize)
		if err != nil {
			return fmt.Errorf("fetching authors leaderboard: %w", err)
		}
		for i, a := range lb.Content {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", rank+i, displayName(a.Username, a.FirstName, a.LastName), a.TotalCount, a.PublicCount, a.PrivateCount)
		}
		return nil
	}

	lb, err := client.GetUsersLeaderboard(ctx, leaderboardPage, leaderboardSize)
	if err != nil {
		return fmt.Errorf("fetching users leaderboard: %w", err)
	}
	for i, u := range lb.Content {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", rank+i, displayName(u.Username, u.FirstName, u.LastName), u.TotalCount, u.PublicCount, u.PrivateCount)
	}
	return nil
}

func displayName(username *string, first, last string) string {
	if username != nil && *username != "" {
		return "@" + *username
	}
	if n := strings.TrimSpace(first + " " + last); n != "" {
		return n
	}
	return "-"
}

func init() {
	leaderboardCmd.Flags().IntVar(&leaderboardPage, "page", 0, "page (zero based)")
	leaderboardCmd.Flags().IntVar(&leaderboardSize, "size", 20, "rows per page")
	rootCmd.AddCommand(leaderboardCmd)
}
