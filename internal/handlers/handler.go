// Package handlers exposes the JSON API the front-end talks to.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/fetchpay/internal/app"
	"github.com/cesargomez89/fetchpay/internal/ledger"
	"github.com/cesargomez89/fetchpay/internal/logger"
	"github.com/cesargomez89/fetchpay/internal/payments"
	"github.com/cesargomez89/fetchpay/internal/ratelimit"
)

type Handler struct {
	Fetch    *app.FetchService
	Payments *payments.Service
	Ledger   *ledger.Ledger
	Limiter  *ratelimit.Limiter
	Logger   *logger.Logger
}

func NewHandler(fetch *app.FetchService, pay *payments.Service, ldg *ledger.Ledger, limiter *ratelimit.Limiter, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Fetch:    fetch,
		Payments: pay,
		Ledger:   ldg,
		Limiter:  limiter,
		Logger:   log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/downloads/options", h.DownloadOptions)
		r.Post("/downloads", h.SubmitDownload)
		r.Get("/accounts/{id}/balance", h.AccountBalance)
		r.Get("/queue", h.QueueSnapshot)
		r.Get("/history", h.History)
		r.Get("/stats", h.Stats)
		r.Get("/topup/packages", h.TopupPackages)
		r.Post("/topup/stars", h.CreditStarPackage)
		r.Post("/topup/invoices", h.CreateTopupInvoice)
		r.Post("/topup/invoices/{id}/confirm", h.ConfirmTopupInvoice)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
