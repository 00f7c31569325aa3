package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cesargomez89/fetchpay/internal/ledger"
	"github.com/cesargomez89/fetchpay/internal/store"
)

const testStartingBalance = 10

func setupService(t *testing.T, providerURL string) (*Service, *ledger.Ledger) {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ldg := ledger.New(db, testStartingBalance, nil)
	return NewService(db, ldg, NewProvider(providerURL, "test-token"), nil), ldg
}

// fakeProvider serves createInvoice/getInvoice with a controllable status.
func fakeProvider(t *testing.T, status *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Crypto-Pay-API-Token") != "test-token" {
			t.Errorf("missing provider token header")
		}
		resp := apiResponse{OK: true, Result: ProviderInvoice{
			ID:     "ext-1",
			PayURL: "https://pay.example/ext-1",
			Status: *status,
		}}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestPackagesArePriced(t *testing.T) {
	pkgs := Packages()
	if len(pkgs) != 3 {
		t.Fatalf("expected 3 packages, got %d", len(pkgs))
	}
	want := map[int64]int64{10: 1, 200: 90, 300: 130}
	for _, p := range pkgs {
		if want[p.Credits] != p.Stars {
			t.Errorf("package %d credits: expected %d stars, got %d", p.Credits, want[p.Credits], p.Stars)
		}
	}
}

func TestCreateInvoice(t *testing.T) {
	status := "active"
	server := fakeProvider(t, &status)
	defer server.Close()
	svc, _ := setupService(t, server.URL)

	inv, err := svc.CreateInvoice(context.Background(), "acct-1", 200)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if inv.ExternalID != "ext-1" {
		t.Errorf("expected external ID ext-1, got %q", inv.ExternalID)
	}
	if inv.PayURL != "https://pay.example/ext-1" {
		t.Errorf("unexpected pay URL %q", inv.PayURL)
	}
	if inv.Credits != 200 {
		t.Errorf("expected 200 credits, got %d", inv.Credits)
	}
}

func TestCreateInvoiceRejectsUnknownPackage(t *testing.T) {
	status := "active"
	server := fakeProvider(t, &status)
	defer server.Close()
	svc, _ := setupService(t, server.URL)

	if _, err := svc.CreateInvoice(context.Background(), "acct-1", 42); !errors.Is(err, ErrUnknownPackage) {
		t.Errorf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestConfirmCreditsOnce(t *testing.T) {
	status := "active"
	server := fakeProvider(t, &status)
	defer server.Close()
	svc, ldg := setupService(t, server.URL)

	inv, err := svc.CreateInvoice(context.Background(), "acct-1", 10)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	if _, err := svc.Confirm(context.Background(), inv.ID); !errors.Is(err, ErrInvoiceUnpaid) {
		t.Fatalf("expected ErrInvoiceUnpaid while active, got %v", err)
	}

	status = "paid"
	balance, err := svc.Confirm(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if balance != testStartingBalance+10 {
		t.Errorf("expected balance %d, got %d", testStartingBalance+10, balance)
	}

	// A second confirmation must not credit again.
	balance, err = svc.Confirm(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("second Confirm failed: %v", err)
	}
	if balance != testStartingBalance+10 {
		t.Errorf("balance changed on repeat confirm: %d", balance)
	}

	got, err := ldg.GetOrCreate("acct-1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if got != testStartingBalance+10 {
		t.Errorf("ledger balance %d, expected %d", got, testStartingBalance+10)
	}
}

func TestConfirmUnknownInvoice(t *testing.T) {
	status := "paid"
	server := fakeProvider(t, &status)
	defer server.Close()
	svc, _ := setupService(t, server.URL)

	if _, err := svc.Confirm(context.Background(), "nope"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestCreditPackage(t *testing.T) {
	status := "active"
	server := fakeProvider(t, &status)
	defer server.Close()
	svc, _ := setupService(t, server.URL)

	balance, err := svc.CreditPackage("acct-1", 300)
	if err != nil {
		t.Fatalf("CreditPackage failed: %v", err)
	}
	if balance != testStartingBalance+300 {
		t.Errorf("expected balance %d, got %d", testStartingBalance+300, balance)
	}

	if _, err := svc.CreditPackage("acct-1", 7); !errors.Is(err, ErrUnknownPackage) {
		t.Errorf("expected ErrUnknownPackage, got %v", err)
	}
}
