package invoice

import (
	"fmt"

	"github.com/payflow/backend/internal/models"
)

// The milestone lifecycle is strictly pending -> paid -> released. No state
// is skipped and no transition reverses; released is terminal.

// ValidateTransition checks whether a milestone may move from current to
// target. It knows nothing about sequencing; see CheckActionable.
func ValidateTransition(current, target string) error {
	switch target {
	case models.MilestoneStatusPaid:
		if current != models.MilestoneStatusPending {
			return fmt.Errorf("%w: cannot pay a %s milestone", ErrInvalidTransition, current)
		}
	case models.MilestoneStatusReleased:
		if current != models.MilestoneStatusPaid {
			return fmt.Errorf("%w: cannot release a %s milestone", ErrInvalidTransition, current)
		}
	default:
		return fmt.Errorf("%w: unknown target status %q", ErrInvalidTransition, target)
	}
	return nil
}

// CheckActionable enforces the payment gating rule: a milestone may be paid
// only once every milestone with a lower order has left pending. Clients pay
// milestones in sequence.
func CheckActionable(milestones []models.Milestone, target *models.Milestone) error {
	for i := range milestones {
		ms := &milestones[i]
		if ms.Order < target.Order && ms.Status == models.MilestoneStatusPending {
			return fmt.Errorf("%w: milestone %d is locked until milestone %d is paid",
				ErrMilestoneLocked, target.Order, ms.Order)
		}
	}
	return nil
}

// DeriveStatus computes the invoice status from its milestone statuses:
// completed when every milestone is released, active when any milestone has
// been paid or released. Otherwise the current status is kept, so an invoice
// never regresses from active or completed back to pending.
func DeriveStatus(current string, milestones []models.Milestone) string {
	allReleased := len(milestones) > 0
	anyFunded := false
	for _, ms := range milestones {
		if ms.Status != models.MilestoneStatusReleased {
			allReleased = false
		}
		if ms.Status == models.MilestoneStatusPaid || ms.Status == models.MilestoneStatusReleased {
			anyFunded = true
		}
	}
	switch {
	case allReleased:
		return models.InvoiceStatusCompleted
	case anyFunded:
		return models.InvoiceStatusActive
	default:
		return current
	}
}

// ComputeFinancials returns the exact cent split of the invoice total across
// released, escrowed (paid) and pending milestones. Pending is defined by
// subtraction, so the three always sum to the total.
func ComputeFinancials(inv *models.Invoice) models.Financials {
	var f models.Financials
	for _, ms := range inv.Milestones {
		switch ms.Status {
		case models.MilestoneStatusReleased:
			f.ReleasedCents += ms.AmountCents
		case models.MilestoneStatusPaid:
			f.EscrowedCents += ms.AmountCents
		}
	}
	f.PendingCents = inv.TotalCents - f.ReleasedCents - f.EscrowedCents
	return f
}
