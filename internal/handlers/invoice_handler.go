package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/payflow/backend/internal/generator"
	"github.com/payflow/backend/internal/invoice"
	"github.com/payflow/backend/internal/middleware"
	"github.com/payflow/backend/internal/models"
)

// Ledger is the subset of the invoice service the handler needs.
type Ledger interface {
	CreateInvoice(ctx context.Context, draft *models.Invoice) (*models.Invoice, error)
	TransitionMilestone(ctx context.Context, invoiceID, milestoneID, target, actorWallet string) (*models.Invoice, error)
	Get(ctx context.Context, id string) (*models.Invoice, error)
	List(ctx context.Context) ([]*models.Invoice, error)
}

// DraftGenerator abstracts the AI draft collaborator so tests inject stubs.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, description, freelancerWallet string) (*models.Invoice, error)
}

// InvoiceHandler serves the /v1/invoices and /v1/pay endpoints.
type InvoiceHandler struct {
	Ledger    Ledger
	Generator DraftGenerator // nil when no provider API key is configured
	Logger    *slog.Logger
}

// --- POST /v1/invoices/generate ---

type generateDraftRequest struct {
	Description      string `json:"description"`
	FreelancerWallet string `json:"freelancer_wallet"`
}

// GenerateDraft turns a free-text description into a normalized invoice
// draft. The draft is returned to the caller, not inserted: creation is a
// separate call, so an abandoned generation leaves no trace in the ledger.
func (h *InvoiceHandler) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	if h.Generator == nil {
		writeError(w, http.StatusServiceUnavailable, "invoice generation is not configured")
		return
	}
	var req generateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	wallet := req.FreelancerWallet
	if wallet == "" {
		wallet = middleware.WalletFromCtx(r.Context())
	}
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "freelancer_wallet is required")
		return
	}

	draft, err := h.Generator.GenerateDraft(r.Context(), req.Description, wallet)
	if err != nil {
		switch {
		case errors.Is(err, generator.ErrProviderUnavailable):
			h.Logger.Warn("draft generation unavailable", "error", err)
			writeError(w, http.StatusBadGateway, "generation provider unavailable, try again")
		case errors.Is(err, generator.ErrBadDraft):
			h.Logger.Warn("draft generation produced bad data", "error", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.Logger.Error("draft generation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// --- POST /v1/wallets ---

// ConnectWallet mints a simulated wallet address for a caller that has none.
// There is no key material behind it; the escrow flow is simulated end to end.
func (h *InvoiceHandler) ConnectWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"address": models.NewWalletAddress()})
}

// --- POST /v1/invoices ---

// CreateInvoice admits a draft to the ledger.
func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var draft models.Invoice
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if draft.FreelancerWallet == "" {
		draft.FreelancerWallet = middleware.WalletFromCtx(r.Context())
	}

	inv, err := h.Ledger.CreateInvoice(r.Context(), &draft)
	if err != nil {
		var verr *invoice.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": verr.Detail, "rule": verr.Rule})
			return
		}
		h.Logger.Error("create invoice", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// --- GET /v1/invoices ---

func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Ledger.List(r.Context())
	if err != nil {
		h.Logger.Error("list invoices", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

// --- GET /v1/invoices/{id} ---

func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Ledger.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}
		h.Logger.Error("get invoice", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// --- GET /v1/pay/{id} ---

// payMilestone decorates a milestone with what the client may do with it.
type payMilestone struct {
	models.Milestone
	Locked     bool `json:"locked"`
	Payable    bool `json:"payable"`
	Releasable bool `json:"releasable"`
}

type payViewResponse struct {
	Invoice    *models.Invoice   `json:"invoice"`
	Financials models.Financials `json:"financials"`
	Milestones []payMilestone    `json:"milestones"`
}

// PayView is the read side of the client payment link: one invoice, its
// financial breakdown, and per-milestone actionability under the sequencing
// rule.
func (h *InvoiceHandler) PayView(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Ledger.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}
		h.Logger.Error("pay view", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	milestones := make([]payMilestone, len(inv.Milestones))
	for i, ms := range inv.Milestones {
		locked := invoice.CheckActionable(inv.Milestones, &inv.Milestones[i]) != nil
		milestones[i] = payMilestone{
			Milestone:  ms,
			Locked:     locked && ms.Status == models.MilestoneStatusPending,
			Payable:    ms.Status == models.MilestoneStatusPending && !locked,
			Releasable: ms.Status == models.MilestoneStatusPaid,
		}
	}
	writeJSON(w, http.StatusOK, payViewResponse{
		Invoice:    inv,
		Financials: invoice.ComputeFinancials(inv),
		Milestones: milestones,
	})
}

// --- POST /v1/pay/{id}/milestones/{msID}/pay and /release ---

// PayMilestone moves a milestone into escrow (pending -> paid).
func (h *InvoiceHandler) PayMilestone(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.MilestoneStatusPaid)
}

// ReleaseMilestone releases escrowed funds to the freelancer (paid -> released).
func (h *InvoiceHandler) ReleaseMilestone(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.MilestoneStatusReleased)
}

func (h *InvoiceHandler) transition(w http.ResponseWriter, r *http.Request, target string) {
	invoiceID := r.PathValue("id")
	milestoneID := r.PathValue("msID")
	wallet := middleware.WalletFromCtx(r.Context())

	inv, err := h.Ledger.TransitionMilestone(r.Context(), invoiceID, milestoneID, target, wallet)
	if err != nil {
		switch {
		case errors.Is(err, invoice.ErrNotFound), errors.Is(err, invoice.ErrMilestoneNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, invoice.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, invoice.ErrMilestoneLocked):
			writeError(w, http.StatusLocked, err.Error())
		default:
			h.Logger.Error("transition milestone", "invoice_id", invoiceID, "milestone_id", milestoneID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{
		Invoice:    inv,
		Financials: invoice.ComputeFinancials(inv),
	})
}

type transitionResponse struct {
	Invoice    *models.Invoice   `json:"invoice"`
	Financials models.Financials `json:"financials"`
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
