package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Stars purchase polling defaults.
const (
	DefaultPurchasePollInterval = 1500 * time.Millisecond
	DefaultPurchasePollAttempts = 3
)

// ErrPurchasePending is returned by PurchaseStars when the purchase did not
// show up before polling gave up. The payment may still complete.
var ErrPurchasePending = errors.New("stars purchase not confirmed yet")

func (c *Client) PrepareDonation(ctx context.Context, req DonationPrepareRequest) (*DonationPrepareResponse, error) {
	var out DonationPrepareResponse
	if err := c.doJSON(ctx, http.MethodPost, "/transactions/prepare", nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConfirmDonation(ctx context.Context, req DonationConfirmRequest) (*DonationConfirmResponse, error) {
	var out DonationConfirmResponse
	if err := c.doJSON(ctx, http.MethodPost, "/transactions/confirm", nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type invoiceRequest struct {
	PackageCode string `json:"packageCode" validate:"required"`
}

// CreateStarsInvoice creates a payment link for a Stars package.
func (c *Client) CreateStarsInvoice(ctx context.Context, packageCode string) (*StarsInvoice, error) {
	req := invoiceRequest{PackageCode: strings.TrimSpace(packageCode)}
	var out StarsInvoice
	if err := c.doJSON(ctx, http.MethodPost, "/stars/invoices", nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStarsPurchasesRecent returns the latest purchase, or nil when there
// is none.
func (c *Client) GetStarsPurchasesRecent(ctx context.Context) (*StarsPurchase, error) {
	var out StarsPurchase
	err := c.doJSON(ctx, http.MethodGet, "/stars/purchases/recent", nil, nil, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

// PurchasePoll controls how PurchaseStars waits for confirmation.
type PurchasePoll struct {
	Interval time.Duration
	Attempts int
	// Pay is called with the invoice URL and must return once the user
	// has paid. A non-nil error aborts the purchase.
	Pay func(ctx context.Context, invoiceURL string) error
}

// PurchaseStars creates an invoice, hands it to poll.Pay, then polls
// recent purchases until one appears. Poll errors are ignored.
func (c *Client) PurchaseStars(ctx context.Context, packageCode string, poll PurchasePoll) (*StarsPurchase, error) {
	if strings.TrimSpace(packageCode) == "" {
		return nil, fmt.Errorf("%w: package code is required", ErrInvalidRequest)
	}
	if poll.Interval <= 0 {
		poll.Interval = DefaultPurchasePollInterval
	}
	if poll.Attempts <= 0 {
		poll.Attempts = DefaultPurchasePollAttempts
	}

	inv, err := c.CreateStarsInvoice(ctx, packageCode)
	if err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}
	if poll.Pay != nil {
		if err := poll.Pay(ctx, inv.InvoiceURL); err != nil {
			return nil, err
		}
	}

	for i := 0; i < poll.Attempts; i++ {
		select {
		case <-time.After(poll.Interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		p, err := c.GetStarsPurchasesRecent(ctx)
		if err != nil {
			c.logger.Printf("api: polling stars purchase: %v", err)
			continue
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, ErrPurchasePending
}
