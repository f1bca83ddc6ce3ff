package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/payflow/backend/internal/invoice"
	"github.com/payflow/backend/internal/models"
)

// DraftClientMessageArgs is the queue payload for background drafting of the
// client-facing message after an invoice is created.
type DraftClientMessageArgs struct {
	InvoiceID string `json:"invoice_id"`
}

func (DraftClientMessageArgs) Kind() string { return "draft_client_message" }

// MessageDrafter produces the client-facing message text for an invoice.
type MessageDrafter interface {
	GenerateClientMessage(ctx context.Context, inv *models.Invoice) (string, error)
}

// Ledger is the subset of the invoice service the worker needs.
type Ledger interface {
	Get(ctx context.Context, id string) (*models.Invoice, error)
	SetClientMessage(ctx context.Context, id, message string) error
}

// DraftClientMessageWorker calls the drafting collaborator and stores the
// result on the invoice. Provider failure degrades to no message; it never
// affects the invoice itself.
type DraftClientMessageWorker struct {
	river.WorkerDefaults[DraftClientMessageArgs]
	ledger  Ledger
	drafter MessageDrafter
	log     *slog.Logger
}

func NewDraftClientMessageWorker(ledger Ledger, drafter MessageDrafter, log *slog.Logger) *DraftClientMessageWorker {
	if log == nil {
		log = slog.Default()
	}
	return &DraftClientMessageWorker{ledger: ledger, drafter: drafter, log: log}
}

func (w *DraftClientMessageWorker) Work(ctx context.Context, job *river.Job[DraftClientMessageArgs]) error {
	inv, err := w.ledger.Get(ctx, job.Args.InvoiceID)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			w.log.Warn("invoice gone before message drafting", "invoice_id", job.Args.InvoiceID)
			return nil
		}
		return err
	}

	msg, err := w.drafter.GenerateClientMessage(ctx, inv)
	if err != nil {
		// Best-effort: the invoice stands without a message.
		w.log.Warn("client message drafting failed", "invoice_id", inv.ID, "error", err)
		return nil
	}
	if msg == "" {
		return nil
	}
	return w.ledger.SetClientMessage(ctx, inv.ID, msg)
}
