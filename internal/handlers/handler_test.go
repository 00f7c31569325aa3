package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/fetchpay/internal/app"
	"github.com/cesargomez89/fetchpay/internal/domain"
	"github.com/cesargomez89/fetchpay/internal/fetcher"
	"github.com/cesargomez89/fetchpay/internal/ledger"
	"github.com/cesargomez89/fetchpay/internal/payments"
	"github.com/cesargomez89/fetchpay/internal/pricing"
	"github.com/cesargomez89/fetchpay/internal/queue"
	"github.com/cesargomez89/fetchpay/internal/ratelimit"
	"github.com/cesargomez89/fetchpay/internal/store"
)

type fakeProber struct{}

func (fakeProber) Probe(ctx context.Context, mediaURL string) (*fetcher.MediaInfo, error) {
	return &fetcher.MediaInfo{
		Title: "Test Video",
		Variants: []domain.Variant{
			{FormatID: "22", Kind: domain.VariantVideo, Quality: "720p", SizeMB: 80},
			{FormatID: "137", Kind: domain.VariantVideo, Quality: "1080p", SizeMB: 300},
		},
	}, nil
}

type fixture struct {
	router         chi.Router
	providerStatus string
}

func setupHandler(t *testing.T, startingBalance int64, rpm int) *fixture {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{providerStatus: "active"}
	providerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"invoice_id": "ext-1",
				"pay_url":    "https://pay.example/ext-1",
				"status":     f.providerStatus,
			},
		})
	}))
	t.Cleanup(providerSrv.Close)

	ldg := ledger.New(db, startingBalance, nil)
	fetch := app.NewFetchService(db, ldg, fakeProber{}, queue.NewQueue(), pricing.DefaultPolicy(), nil)
	pay := payments.NewService(db, ldg, payments.NewProvider(providerSrv.URL, "tok"), nil)
	h := NewHandler(fetch, pay, ldg, ratelimit.New(rpm, nil), nil)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &reqBody)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestSubmitDownload(t *testing.T) {
	f := setupHandler(t, 20, 100)

	rec := f.do(t, http.MethodPost, "/api/downloads", map[string]string{
		"account": "acct-1", "url": "https://example.com/v", "format": "137",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[map[string]any](t, rec)
	if resp["cost"].(float64) != 12 {
		t.Errorf("expected cost 12, got %v", resp["cost"])
	}
	if resp["position"].(float64) != 1 {
		t.Errorf("expected position 1, got %v", resp["position"])
	}
	if resp["balance"].(float64) != 8 {
		t.Errorf("expected balance 8, got %v", resp["balance"])
	}
}

func TestSubmitDownloadInsufficientFunds(t *testing.T) {
	f := setupHandler(t, 5, 100)

	rec := f.do(t, http.MethodPost, "/api/downloads", map[string]string{
		"account": "acct-1", "url": "https://example.com/v", "format": "137",
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[map[string]any](t, rec)
	if resp["required"].(float64) != 12 {
		t.Errorf("402 should carry the required cost 12, got %v", resp["required"])
	}
	if resp["balance"].(float64) != 5 {
		t.Errorf("402 should carry the balance 5, got %v", resp["balance"])
	}
}

func TestSubmitDownloadUnknownFormat(t *testing.T) {
	f := setupHandler(t, 20, 100)

	rec := f.do(t, http.MethodPost, "/api/downloads", map[string]string{
		"account": "acct-1", "url": "https://example.com/v", "format": "999",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSubmitDownloadRateLimited(t *testing.T) {
	f := setupHandler(t, 100, 1)

	body := map[string]string{"account": "acct-1", "url": "https://example.com/v", "format": "22"}
	if rec := f.do(t, http.MethodPost, "/api/downloads", body); rec.Code != http.StatusCreated {
		t.Fatalf("first submit should pass, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/downloads", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
}

func TestSubmitDownloadValidation(t *testing.T) {
	f := setupHandler(t, 20, 100)

	rec := f.do(t, http.MethodPost, "/api/downloads", map[string]string{"account": "acct-1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", rec.Code)
	}
}

func TestDownloadOptions(t *testing.T) {
	f := setupHandler(t, 20, 100)

	rec := f.do(t, http.MethodGet, "/api/downloads/options?url=https://example.com/v", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode[struct {
		Title   string       `json:"title"`
		Options []app.Option `json:"options"`
	}](t, rec)
	if resp.Title != "Test Video" {
		t.Errorf("unexpected title %q", resp.Title)
	}
	if len(resp.Options) != 2 {
		t.Errorf("expected 2 options, got %d", len(resp.Options))
	}
}

func TestAccountBalanceCreatesAccount(t *testing.T) {
	f := setupHandler(t, 10, 100)

	rec := f.do(t, http.MethodGet, "/api/accounts/acct-9/balance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["balance"].(float64) != 10 {
		t.Errorf("expected starting balance 10, got %v", resp["balance"])
	}
}

func TestQueueSnapshot(t *testing.T) {
	f := setupHandler(t, 100, 100)

	body := map[string]string{"account": "acct-1", "url": "https://example.com/v", "format": "22"}
	f.do(t, http.MethodPost, "/api/downloads", body)
	f.do(t, http.MethodPost, "/api/downloads", body)

	rec := f.do(t, http.MethodGet, "/api/queue", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["length"].(float64) != 2 {
		t.Errorf("expected queue length 2, got %v", resp["length"])
	}
}

func TestTopupPackages(t *testing.T) {
	f := setupHandler(t, 10, 100)

	rec := f.do(t, http.MethodGet, "/api/topup/packages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[struct {
		Packages []payments.Package `json:"packages"`
	}](t, rec)
	if len(resp.Packages) != 3 {
		t.Errorf("expected 3 packages, got %d", len(resp.Packages))
	}
}

func TestTopupInvoiceFlow(t *testing.T) {
	f := setupHandler(t, 10, 100)

	rec := f.do(t, http.MethodPost, "/api/topup/invoices", map[string]any{
		"account": "acct-1", "credits": 200,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	inv := decode[domain.Invoice](t, rec)
	if inv.PayURL == "" {
		t.Error("expected a pay URL on the invoice")
	}

	rec = f.do(t, http.MethodPost, "/api/topup/invoices/"+inv.ID+"/confirm", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while unpaid, got %d", rec.Code)
	}

	f.providerStatus = "paid"
	rec = f.do(t, http.MethodPost, "/api/topup/invoices/"+inv.ID+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	if resp["balance"].(float64) != 210 {
		t.Errorf("expected balance 210, got %v", resp["balance"])
	}
}

func TestTopupInvoiceUnknownPackage(t *testing.T) {
	f := setupHandler(t, 10, 100)

	rec := f.do(t, http.MethodPost, "/api/topup/invoices", map[string]any{
		"account": "acct-1", "credits": 7,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCreditStarPackage(t *testing.T) {
	f := setupHandler(t, 10, 100)

	rec := f.do(t, http.MethodPost, "/api/topup/stars", map[string]any{
		"account": "acct-1", "credits": 300,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	if resp["balance"].(float64) != 310 {
		t.Errorf("expected balance 310, got %v", resp["balance"])
	}

	rec = f.do(t, http.MethodPost, "/api/topup/stars", map[string]any{
		"account": "acct-1", "credits": 7,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown package, got %d", rec.Code)
	}
}

func TestHistoryLimit(t *testing.T) {
	f := setupHandler(t, 100, 100)

	body := map[string]string{"account": "acct-1", "url": "https://example.com/v", "format": "22"}
	for i := 0; i < 3; i++ {
		if rec := f.do(t, http.MethodPost, "/api/downloads", body); rec.Code != http.StatusCreated {
			t.Fatalf("submit %d failed with %d", i, rec.Code)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/history?account=acct-1&limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[struct {
		Jobs []domain.Job `json:"jobs"`
	}](t, rec)
	if len(resp.Jobs) != 2 {
		t.Errorf("expected 2 jobs with limit=2, got %d", len(resp.Jobs))
	}
}

func TestStats(t *testing.T) {
	f := setupHandler(t, 100, 100)

	rec := f.do(t, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[struct {
		Stats store.JobStats `json:"stats"`
	}](t, rec)
	if resp.Stats.Total != 0 {
		t.Errorf("fresh db should report 0 finished jobs, got %d", resp.Stats.Total)
	}
}
