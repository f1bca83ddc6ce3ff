package main

import (
	"net/http"

	"github.com/payflow/backend/internal/handlers"
	"github.com/payflow/backend/internal/middleware"
)

// RegisterRoutes adds the /v1/ invoice endpoints to the given mux. Every
// route passes through WalletContext so handlers can read the caller's
// wallet address; the pay endpoints use it to capture the client wallet.
func RegisterRoutes(mux *http.ServeMux, h *handlers.InvoiceHandler) {
	wallet := middleware.WalletContext

	mux.Handle("POST /v1/wallets", wallet(http.HandlerFunc(h.ConnectWallet)))

	mux.Handle("POST /v1/invoices/generate", wallet(http.HandlerFunc(h.GenerateDraft)))
	mux.Handle("POST /v1/invoices", wallet(http.HandlerFunc(h.CreateInvoice)))
	mux.Handle("GET /v1/invoices", wallet(http.HandlerFunc(h.ListInvoices)))
	mux.Handle("GET /v1/invoices/{id}", wallet(http.HandlerFunc(h.GetInvoice)))

	// Client-facing payment link: .../pay/{invoice-id}
	mux.Handle("GET /v1/pay/{id}", wallet(http.HandlerFunc(h.PayView)))
	mux.Handle("POST /v1/pay/{id}/milestones/{msID}/pay", wallet(http.HandlerFunc(h.PayMilestone)))
	mux.Handle("POST /v1/pay/{id}/milestones/{msID}/release", wallet(http.HandlerFunc(h.ReleaseMilestone)))
}
