package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/fetchpay/internal/app"
	"github.com/cesargomez89/fetchpay/internal/domain"
	"github.com/cesargomez89/fetchpay/internal/payments"
)

type submitRequest struct {
	Account string `json:"account"`
	Target  string `json:"target"`
	URL     string `json:"url"`
	Format  string `json:"format"`
}

func (h *Handler) SubmitDownload(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Account == "" || req.URL == "" || req.Format == "" {
		h.writeError(w, http.StatusBadRequest, "account, url and format are required")
		return
	}
	if req.Target == "" {
		req.Target = req.Account
	}

	if ok, _ := h.Limiter.Allow(req.Account); !ok {
		h.writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
		return
	}

	sub, err := h.Fetch.Submit(r.Context(), req.Account, req.Target, req.URL, req.Format)
	if err != nil {
		var insufficient *app.InsufficientFundsError
		switch {
		case errors.As(err, &insufficient):
			h.writeJSON(w, http.StatusPaymentRequired, map[string]any{
				"error":    "not enough credits, top up first",
				"required": insufficient.Cost,
				"balance":  insufficient.Balance,
			})
		case errors.Is(err, domain.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, "not enough credits, top up first")
		case errors.Is(err, domain.ErrVariantNotFound):
			h.writeError(w, http.StatusNotFound, "requested format is not available")
		default:
			h.Logger.Error("Submit failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "could not process the link")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"job_id":   sub.Job.ID,
		"position": sub.Position,
		"cost":     sub.Cost,
		"balance":  sub.Balance,
	})
}

func (h *Handler) DownloadOptions(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		h.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	title, opts, err := h.Fetch.Options(r.Context(), url)
	if err != nil {
		if errors.Is(err, domain.ErrVariantNotFound) {
			h.writeError(w, http.StatusNotFound, "no downloadable formats found")
			return
		}
		h.Logger.Error("Probe failed", "error", err, "url", url)
		h.writeError(w, http.StatusBadGateway, "could not inspect the link")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"title": title, "options": opts})
}

func (h *Handler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balance, err := h.Ledger.GetOrCreate(id)
	if err != nil {
		h.Logger.Error("Balance lookup failed", "error", err, "account_id", id)
		h.writeError(w, http.StatusInternalServerError, "balance unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"account": id, "balance": balance})
}

func (h *Handler) QueueSnapshot(w http.ResponseWriter, r *http.Request) {
	jobs := h.Fetch.Pending()
	h.writeJSON(w, http.StatusOK, map[string]any{"pending": jobs, "length": len(jobs)})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		h.writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	jobs, err := h.Fetch.History(account, limit)
	if err != nil {
		h.Logger.Error("History lookup failed", "error", err, "account_id", account)
		h.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, recent, err := h.Fetch.Stats()
	if err != nil {
		h.Logger.Error("Stats lookup failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"stats": stats, "recent": recent})
}

func (h *Handler) TopupPackages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"packages": payments.Packages()})
}

type invoiceRequest struct {
	Account string `json:"account"`
	Credits int64  `json:"credits"`
}

// CreditStarPackage applies a star-package payment the front-end has already
// collected; the body names the package by its credit amount.
func (h *Handler) CreditStarPackage(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Account == "" {
		h.writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	balance, err := h.Payments.CreditPackage(req.Account, req.Credits)
	if err != nil {
		if errors.Is(err, payments.ErrUnknownPackage) {
			h.writeError(w, http.StatusBadRequest, "unknown package: "+strconv.FormatInt(req.Credits, 10)+" credits")
			return
		}
		h.Logger.Error("Star credit failed", "error", err, "account_id", req.Account)
		h.writeError(w, http.StatusInternalServerError, "could not apply the payment")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"account": req.Account, "balance": balance})
}

func (h *Handler) CreateTopupInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Account == "" {
		h.writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	inv, err := h.Payments.CreateInvoice(r.Context(), req.Account, req.Credits)
	if err != nil {
		if errors.Is(err, payments.ErrUnknownPackage) {
			h.writeError(w, http.StatusBadRequest, "unknown package: "+strconv.FormatInt(req.Credits, 10)+" credits")
			return
		}
		h.Logger.Error("Invoice creation failed", "error", err, "account_id", req.Account)
		h.writeError(w, http.StatusBadGateway, "payment provider unavailable")
		return
	}

	h.writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) ConfirmTopupInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balance, err := h.Payments.Confirm(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrInvoiceNotFound):
			h.writeError(w, http.StatusNotFound, "invoice not found")
		case errors.Is(err, payments.ErrInvoiceUnpaid):
			h.writeError(w, http.StatusConflict, "invoice is not paid yet")
		default:
			h.Logger.Error("Invoice confirmation failed", "error", err, "invoice_id", id)
			h.writeError(w, http.StatusBadGateway, "payment provider unavailable")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"invoice": id, "balance": balance})
}
