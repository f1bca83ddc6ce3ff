package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/payflow/backend/internal/models"
)

// EnqueueMessageFunc schedules background drafting of the client-facing
// message for a freshly created invoice. Typically a closure over
// river.Client.Insert; wired by main after the queue client exists.
type EnqueueMessageFunc func(ctx context.Context, invoiceID string) error

// Service is the invoice ledger. It owns all invoice and milestone
// mutations: creation, milestone transitions and the derived invoice
// status. Mutations are serialized per invoice; operations on different
// invoices proceed in parallel.
type Service struct {
	store          Store
	log            *slog.Logger
	enqueueMessage EnqueueMessageFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService returns a ledger over the given store. enqueueMessage may be
// nil, in which case no client message is drafted after creation.
func NewService(store Store, log *slog.Logger, enqueueMessage EnqueueMessageFunc) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:          store,
		log:            log,
		enqueueMessage: enqueueMessage,
		locks:          make(map[string]*sync.Mutex),
	}
}

// lockInvoice acquires the per-invoice mutex and returns its unlock func.
func (s *Service) lockInvoice(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// CreateInvoice validates the draft and admits it to the ledger. The draft's
// milestone amounts, percentages and orders are taken as-is (see
// ValidateDraft); statuses and timestamps are reset regardless of what the
// draft carried. On any failure the ledger is unchanged.
func (s *Service) CreateInvoice(ctx context.Context, draft *models.Invoice) (*models.Invoice, error) {
	inv := draft.Clone()
	if inv.ID == "" {
		inv.ID = models.NewInvoiceID()
	}
	inv.Status = models.InvoiceStatusPending
	inv.CreatedAt = time.Now().UTC()
	inv.ClientMessage = ""
	for i := range inv.Milestones {
		inv.Milestones[i].Status = models.MilestoneStatusPending
		inv.Milestones[i].PaidAt = nil
		inv.Milestones[i].ReleasedAt = nil
	}

	if err := ValidateDraft(inv); err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, inv); err != nil {
		return nil, err
	}
	s.log.Info("invoice created", "invoice_id", inv.ID, "total_cents", inv.TotalCents, "milestones", len(inv.Milestones))

	// Client message drafting is best-effort and must never block creation.
	if s.enqueueMessage != nil {
		if err := s.enqueueMessage(ctx, inv.ID); err != nil {
			s.log.Warn("enqueue client message draft failed", "invoice_id", inv.ID, "error", err)
		}
	}
	return inv, nil
}

// TransitionMilestone applies a single milestone status change and
// recomputes the invoice status atomically with it. actorWallet, when
// non-empty, is captured as the invoice's client wallet on the client's
// first interaction (and never overwritten).
func (s *Service) TransitionMilestone(ctx context.Context, invoiceID, milestoneID, target, actorWallet string) (*models.Invoice, error) {
	unlock := s.lockInvoice(invoiceID)
	defer unlock()

	inv, err := s.store.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	ms := inv.Milestone(milestoneID)
	if ms == nil {
		return nil, fmt.Errorf("%w: %s on invoice %s", ErrMilestoneNotFound, milestoneID, invoiceID)
	}

	if err := ValidateTransition(ms.Status, target); err != nil {
		return nil, err
	}
	if target == models.MilestoneStatusPaid {
		if err := CheckActionable(inv.Milestones, ms); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	ms.Status = target
	switch target {
	case models.MilestoneStatusPaid:
		if ms.PaidAt == nil {
			ms.PaidAt = &now
		}
	case models.MilestoneStatusReleased:
		if ms.ReleasedAt == nil {
			ms.ReleasedAt = &now
		}
	}

	if actorWallet != "" && inv.ClientWallet == nil {
		w := actorWallet
		inv.ClientWallet = &w
	}

	inv.Status = DeriveStatus(inv.Status, inv.Milestones)

	// Integrity check: creation admits up to one cent of slack between the
	// milestone sum and the invoice total, so pending may legitimately dip
	// that far below zero. Anything beyond it means corrupted ledger data.
	if f := ComputeFinancials(inv); f.PendingCents < -centsTolerance {
		s.log.Error("financials do not reconcile",
			"invoice_id", inv.ID, "released_cents", f.ReleasedCents,
			"escrowed_cents", f.EscrowedCents, "total_cents", inv.TotalCents)
		return nil, fmt.Errorf("invoice %s: financials do not reconcile", inv.ID)
	}

	if err := s.store.Update(ctx, inv); err != nil {
		return nil, err
	}
	s.log.Info("milestone transitioned",
		"invoice_id", inv.ID, "milestone_id", ms.ID, "status", target, "invoice_status", inv.Status)
	return inv, nil
}

// Get returns one invoice by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Invoice, error) {
	return s.store.Get(ctx, id)
}

// List returns all invoices, most recent first.
func (s *Service) List(ctx context.Context) ([]*models.Invoice, error) {
	return s.store.List(ctx)
}

// Financials returns the exact released/escrowed/pending split for an invoice.
func (s *Service) Financials(inv *models.Invoice) models.Financials {
	return ComputeFinancials(inv)
}

// SetClientMessage stores the drafted client-facing message on an invoice.
// Used by the background drafting worker; never touches milestone state.
func (s *Service) SetClientMessage(ctx context.Context, id, message string) error {
	unlock := s.lockInvoice(id)
	defer unlock()

	inv, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	inv.ClientMessage = message
	return s.store.Update(ctx, inv)
}
