package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestPurchaseStars(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/stars/invoices":
			writeJSON(w, StarsInvoice{InvoiceURL: "https://t.me/$inv"})
		case "/api/stars/purchases/recent":
			if polls.Add(1) < 2 {
				http.NotFound(w, r)
				return
			}
			writeJSON(w, StarsPurchase{ID: 5, PackageCode: "BASIC"})
		}
	})

	var paid string
	p, err := c.PurchaseStars(context.Background(), "BASIC", PurchasePoll{
		Interval: time.Millisecond,
		Pay: func(_ context.Context, u string) error {
			paid = u
			return nil
		},
	})
	if err != nil {
		t.Fatalf("PurchaseStars: %v", err)
	}
	if paid != "https://t.me/$inv" || p.ID != 5 || polls.Load() != 2 {
		t.Errorf("paid=%q purchase=%+v polls=%d", paid, p, polls.Load())
	}
}

func TestPurchaseStarsPending(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/stars/invoices" {
			writeJSON(w, StarsInvoice{InvoiceURL: "x"})
			return
		}
		polls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.PurchaseStars(context.Background(), "BASIC", PurchasePoll{Interval: time.Millisecond})
	if !errors.Is(err, ErrPurchasePending) {
		t.Errorf("err = %v, want ErrPurchasePending", err)
	}
	if polls.Load() != DefaultPurchasePollAttempts {
		t.Errorf("polls = %d, want %d", polls.Load(), DefaultPurchasePollAttempts)
	}
}

func TestPurchaseStarsRequiresPackage(t *testing.T) {
	c := New()
	if _, err := c.PurchaseStars(context.Background(), " ", PurchasePoll{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v", err)
	}
}

func TestWaitForGeneration(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generation/status/task-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		n := calls.Add(1)
		status := GenerationPending
		switch {
		case n == 2:
			status = GenerationProcessing
		case n >= 3:
			status = GenerationCompleted
		}
		writeJSON(w, GenerationStatus{Status: status, ImageID: "img"})
	})

	var seen []string
	st, err := c.WaitForGeneration(context.Background(), "task-1", time.Millisecond, func(s GenerationStatus) {
		seen = append(seen, s.Status)
	})
	if err != nil {
		t.Fatalf("WaitForGeneration: %v", err)
	}
	if st.Status != GenerationCompleted || st.TaskID != "task-1" {
		t.Errorf("final = %+v", st)
	}
	want := []string{GenerationPending, GenerationProcessing, GenerationCompleted}
	if len(seen) != len(want) {
		t.Fatalf("updates = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("update %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestStartGenerationValidates(t *testing.T) {
	c := New()
	if _, err := c.StartGeneration(context.Background(), GenerationRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}
