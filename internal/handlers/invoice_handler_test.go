package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/payflow/backend/internal/generator"
	"github.com/payflow/backend/internal/invoice"
	"github.com/payflow/backend/internal/middleware"
	"github.com/payflow/backend/internal/models"
)

// ---------------------------------------------------------------------------
// The ledger under the handler is the real service over a MemStore; only the
// AI collaborator is stubbed.
// ---------------------------------------------------------------------------

type stubGenerator struct {
	draft *models.Invoice
	err   error
}

func (s *stubGenerator) GenerateDraft(context.Context, string, string) (*models.Invoice, error) {
	return s.draft, s.err
}

func newTestHandler(gen DraftGenerator) (*InvoiceHandler, *invoice.Service) {
	svc := invoice.NewService(invoice.NewMemStore(), nil, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &InvoiceHandler{Ledger: svc, Generator: gen, Logger: logger}, svc
}

func draftBody() string {
	return `{
		"freelancer_wallet": "0x1a2b3c4d5e6f",
		"client_name": "Sara Tech",
		"title": "Website Development",
		"total_cents": 100000,
		"currency": "MNEE",
		"milestones": [
			{"id": "MS-1", "title": "Upfront", "amount_cents": 30000, "percentage": 30, "order": 1},
			{"id": "MS-2", "title": "Build", "amount_cents": 40000, "percentage": 40, "order": 2},
			{"id": "MS-3", "title": "Delivery", "amount_cents": 30000, "percentage": 30, "order": 3}
		]
	}`
}

func createInvoice(t *testing.T, h *InvoiceHandler) *models.Invoice {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", strings.NewReader(draftBody()))
	rec := httptest.NewRecorder()
	h.CreateInvoice(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invoice: status %d, body %s", rec.Code, rec.Body.String())
	}
	var inv models.Invoice
	if err := json.NewDecoder(rec.Body).Decode(&inv); err != nil {
		t.Fatalf("decode created invoice: %v", err)
	}
	return &inv
}

func TestCreateInvoice_Created(t *testing.T) {
	h, _ := newTestHandler(nil)
	inv := createInvoice(t, h)
	if inv.ID == "" || inv.Status != models.InvoiceStatusPending {
		t.Fatalf("unexpected invoice: %+v", inv)
	}
}

func TestCreateInvoice_ValidationError(t *testing.T) {
	h, _ := newTestHandler(nil)
	body := strings.Replace(draftBody(), `"percentage": 40`, `"percentage": 39`, 1)
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateInvoice(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rec.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp["rule"] != "percentage_sum" {
		t.Errorf("rule: got %q, want percentage_sum", resp["rule"])
	}
}

func TestGetInvoice_NotFound(t *testing.T) {
	h, _ := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/INV-NOPE", nil)
	req.SetPathValue("id", "INV-NOPE")
	rec := httptest.NewRecorder()
	h.GetInvoice(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
}

func transitionReq(t *testing.T, action func(http.ResponseWriter, *http.Request), invID, msID, wallet string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/pay/%s/milestones/%s/x", invID, msID), nil)
	req.SetPathValue("id", invID)
	req.SetPathValue("msID", msID)
	if wallet != "" {
		req = req.WithContext(middleware.WithWallet(req.Context(), wallet))
	}
	rec := httptest.NewRecorder()
	action(rec, req)
	return rec
}

func TestPayAndReleaseFlow(t *testing.T) {
	h, svc := newTestHandler(nil)
	inv := createInvoice(t, h)

	rec := transitionReq(t, h.PayMilestone, inv.ID, "MS-1", "0xclient")
	if rec.Code != http.StatusOK {
		t.Fatalf("pay MS-1: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Invoice    *models.Invoice   `json:"invoice"`
		Financials models.Financials `json:"financials"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Financials.EscrowedCents != 30000 || resp.Financials.PendingCents != 70000 {
		t.Errorf("financials after pay: %+v", resp.Financials)
	}
	if resp.Invoice.ClientWallet == nil || *resp.Invoice.ClientWallet != "0xclient" {
		t.Errorf("client wallet not captured: %+v", resp.Invoice.ClientWallet)
	}

	rec = transitionReq(t, h.ReleaseMilestone, inv.ID, "MS-1", "0xclient")
	if rec.Code != http.StatusOK {
		t.Fatalf("release MS-1: status %d, body %s", rec.Code, rec.Body.String())
	}

	got, err := svc.Get(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.InvoiceStatusActive {
		t.Errorf("invoice status: got %q, want active", got.Status)
	}
}

func TestPayMilestone_Locked(t *testing.T) {
	h, _ := newTestHandler(nil)
	inv := createInvoice(t, h)

	rec := transitionReq(t, h.PayMilestone, inv.ID, "MS-2", "0xclient")
	if rec.Code != http.StatusLocked {
		t.Fatalf("status: got %d, want 423, body %s", rec.Code, rec.Body.String())
	}
}

func TestReleaseMilestone_InvalidTransition(t *testing.T) {
	h, _ := newTestHandler(nil)
	inv := createInvoice(t, h)

	rec := transitionReq(t, h.ReleaseMilestone, inv.ID, "MS-1", "0xclient")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409, body %s", rec.Code, rec.Body.String())
	}
}

func TestPayView(t *testing.T) {
	h, _ := newTestHandler(nil)
	inv := createInvoice(t, h)
	transitionReq(t, h.PayMilestone, inv.ID, "MS-1", "0xclient")

	req := httptest.NewRequest(http.MethodGet, "/v1/pay/"+inv.ID, nil)
	req.SetPathValue("id", inv.ID)
	rec := httptest.NewRecorder()
	h.PayView(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var view struct {
		Financials models.Financials `json:"financials"`
		Milestones []struct {
			ID         string `json:"id"`
			Locked     bool   `json:"locked"`
			Payable    bool   `json:"payable"`
			Releasable bool   `json:"releasable"`
		} `json:"milestones"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Financials.EscrowedCents != 30000 {
		t.Errorf("escrowed: got %d", view.Financials.EscrowedCents)
	}
	// MS-1 paid -> releasable; MS-2 unlocked now; MS-3 locked behind MS-2.
	if !view.Milestones[0].Releasable || view.Milestones[0].Payable {
		t.Errorf("MS-1 actionability: %+v", view.Milestones[0])
	}
	if !view.Milestones[1].Payable || view.Milestones[1].Locked {
		t.Errorf("MS-2 actionability: %+v", view.Milestones[1])
	}
	if !view.Milestones[2].Locked || view.Milestones[2].Payable {
		t.Errorf("MS-3 actionability: %+v", view.Milestones[2])
	}
}

func TestConnectWallet(t *testing.T) {
	h, _ := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/wallets", nil)
	rec := httptest.NewRecorder()
	h.ConnectWallet(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp["address"], "0x") || len(resp["address"]) != 14 {
		t.Errorf("address: got %q", resp["address"])
	}
}

func TestGenerateDraft_ProviderDown(t *testing.T) {
	h, svc := newTestHandler(&stubGenerator{err: fmt.Errorf("%w: connect timeout", generator.ErrProviderUnavailable)})

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/generate",
		strings.NewReader(`{"description": "logo design", "freelancer_wallet": "0xabc"}`))
	rec := httptest.NewRecorder()
	h.GenerateDraft(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", rec.Code)
	}

	// No partial invoice entered the ledger.
	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ledger changed by failed generation: %d invoices", len(list))
	}
}

func TestGenerateDraft_BadDraft(t *testing.T) {
	h, _ := newTestHandler(&stubGenerator{err: fmt.Errorf("%w: percentages sum to 99", generator.ErrBadDraft)})

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/generate",
		strings.NewReader(`{"description": "logo design", "freelancer_wallet": "0xabc"}`))
	rec := httptest.NewRecorder()
	h.GenerateDraft(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rec.Code)
	}
}

func TestGenerateDraft_NotConfigured(t *testing.T) {
	h, _ := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/generate",
		strings.NewReader(`{"description": "logo design", "freelancer_wallet": "0xabc"}`))
	rec := httptest.NewRecorder()
	h.GenerateDraft(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rec.Code)
	}
}
