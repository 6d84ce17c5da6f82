package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stixly/stixly/internal/api"
)

var walletType string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show or change the linked TON wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *api.Client) error {
			w, err := client.GetMyWallet(cmd.Context())
			if err != nil {
				return err
			}
			if w == nil {
				fmt.Println("No wallet linked.")
				return nil
			}
			printWallet(w)
			return nil
		})
	},
}

var walletLinkCmd = &cobra.Command{
	Use:   "link <address>",
	Short: "Link a TON wallet address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *api.Client) error {
			w, err := client.LinkWallet(cmd.Context(), args[0], walletType)
			if err != nil {
				return err
			}
			printWallet(w)
			return nil
		})
	},
}

var walletUnlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Unlink the current wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *api.Client) error {
			if err := client.UnlinkWallet(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Wallet unlinked")
			return nil
		})
	},
}

var walletSyncCmd = &cobra.Command{
	Use:   "sync [connected-address]",
	Short: "Reconcile the linked wallet with the one connected in your wallet app",
	Long: `Without an address nothing is connected locally, so a wallet still
linked on the server is unlinked. With an address the server wallet is
shown as is.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		connected := ""
		if len(args) == 1 {
			connected = args[0]
		}
		return withClient(cmd, func(client *api.Client) error {
			w, err := client.SyncWallet(cmd.Context(), connected)
			if err != nil {
				return err
			}
			if w == nil {
				fmt.Println("No wallet linked.")
				return nil
			}
			printWallet(w)
			if connected != "" && w.WalletAddress != connected {
				fmt.Fprintf(os.Stderr, "Note: server wallet differs from %s; run `stixly wallet link %s` to replace it\n", connected, connected)
			}
			return nil
		})
	},
}

func printWallet(w *api.Wallet) {
	fmt.Printf("Address: %s\n", w.WalletAddress)
	if w.WalletType != nil {
		fmt.Printf("Type:    %s\n", *w.WalletType)
	}
	fmt.Printf("Active:  %v\n", w.IsActive)
	fmt.Printf("Linked:  %s\n", w.CreatedAt)
}

func init() {
	walletLinkCmd.Flags().StringVar(&walletType, "type", "", "wallet app (tonkeeper, mytonwallet, ...)")
	walletCmd.AddCommand(walletLinkCmd)
	walletCmd.AddCommand(walletUnlinkCmd)
	walletCmd.AddCommand(walletSyncCmd)
	rootCmd.AddCommand(walletCmd)
}
