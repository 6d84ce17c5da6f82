package api

import (
	"context"
	"errors"
	"net/http"
)

// GetMyWallet returns the active linked wallet, or nil when none is linked.
func (c *Client) GetMyWallet(ctx context.Context) (*Wallet, error) {
	var out Wallet
	err := c.doJSON(ctx, http.MethodGet, "/wallets/my", nil, nil, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if out.WalletAddress == "" {
		return nil, nil
	}
	return &out, nil
}

// LinkWallet links a TON address to the current user. walletType may be empty.
func (c *Client) LinkWallet(ctx context.Context, address, walletType string) (*Wallet, error) {
	req := LinkWalletRequest{WalletAddress: address}
	if walletType != "" {
		req.WalletType = &walletType
	}
	var out Wallet
	if err := c.doJSON(ctx, http.MethodPost, "/wallets/link", nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnlinkWallet deactivates the current wallet.
func (c *Client) UnlinkWallet(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/wallets/unlink", nil, nil, nil)
}

// SyncWallet reconciles the backend with the locally connected wallet.
// When nothing is connected locally but the backend still has a wallet,
// the backend wallet is unlinked and nil is returned. Otherwise the
// backend wallet is returned as is.
func (c *Client) SyncWallet(ctx context.Context, connectedAddress string) (*Wallet, error) {
	w, err := c.GetMyWallet(ctx)
	if err != nil {
		return nil, err
	}
	if connectedAddress != "" {
		return w, nil
	}
	if w == nil {
		return nil, nil
	}
	c.logger.Printf("api: wallet %s disconnected locally, unlinking", w.WalletAddress)
	if err := c.UnlinkWallet(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}
