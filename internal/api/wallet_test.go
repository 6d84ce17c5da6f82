package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

var testAddress = "UQ" + strings.Repeat("a", 46)

func TestValidTONAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{testAddress, true},
		{"EQ" + strings.Repeat("b", 46), true},
		{"kQ" + strings.Repeat("c", 46), true},
		{"XX" + strings.Repeat("a", 46), false},
		{"UQshort", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidTONAddress(tt.addr); got != tt.want {
			t.Errorf("ValidTONAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestLinkWalletRejectsBadAddress(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	_, err := c.LinkWallet(context.Background(), "nope", "")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
	if calls.Load() != 0 {
		t.Error("invalid request must not reach the server")
	}
}

func TestGetMyWalletNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	w, err := c.GetMyWallet(context.Background())
	if err != nil || w != nil {
		t.Errorf("GetMyWallet = %+v, %v", w, err)
	}
}

func TestSyncWallet(t *testing.T) {
	tests := []struct {
		name       string
		connected  string
		hasBackend bool
		wantUnlink bool
		wantWallet bool
	}{
		{name: "disconnected locally, linked on backend", hasBackend: true, wantUnlink: true},
		{name: "disconnected everywhere"},
		{name: "connected", connected: testAddress, hasBackend: true, wantWallet: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var unlinked atomic.Bool
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/wallets/my":
					if !tt.hasBackend {
						http.NotFound(w, r)
						return
					}
					writeJSON(w, Wallet{ID: 1, WalletAddress: testAddress, IsActive: true})
				case "/api/wallets/unlink":
					unlinked.Store(true)
					w.WriteHeader(http.StatusNoContent)
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			})

			w, err := c.SyncWallet(context.Background(), tt.connected)
			if err != nil {
				t.Fatalf("SyncWallet: %v", err)
			}
			if unlinked.Load() != tt.wantUnlink {
				t.Errorf("unlinked = %v, want %v", unlinked.Load(), tt.wantUnlink)
			}
			if (w != nil) != tt.wantWallet {
				t.Errorf("wallet = %+v, want present=%v", w, tt.wantWallet)
			}
		})
	}
}

func TestConfirmDonationValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, DonationConfirmResponse{Success: true})
	})
	ctx := context.Background()

	if _, err := c.ConfirmDonation(ctx, DonationConfirmRequest{IntentID: 1}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("missing fields err = %v", err)
	}
	res, err := c.ConfirmDonation(ctx, DonationConfirmRequest{IntentID: 1, TxHash: "abc", FromWallet: testAddress})
	if err != nil || !res.Success {
		t.Errorf("ConfirmDonation = %+v, %v", res, err)
	}
}
