package invoice

import (
	"math"
	"sort"

	"github.com/payflow/backend/internal/models"
)

// Reconciliation tolerances for AI-produced drafts: percentages may be off
// by 0.01 of a point, amounts by one cent.
const (
	percentTolerance = 0.01
	centsTolerance   = 1
)

// ValidateDraft checks a candidate invoice against the creation rules:
// at least one milestone, unique milestone ids, orders strictly increasing
// from 1, positive amounts, percentages summing to 100 and amounts summing
// to the invoice total within tolerance.
func ValidateDraft(inv *models.Invoice) error {
	if len(inv.Milestones) == 0 {
		return validationErrf("milestones", "invoice must have at least one milestone")
	}
	if inv.TotalCents <= 0 {
		return validationErrf("total_amount", "total amount must be positive, got %d cents", inv.TotalCents)
	}
	if inv.Title == "" {
		return validationErrf("title", "title is required")
	}
	if inv.FreelancerWallet == "" {
		return validationErrf("freelancer_wallet", "freelancer wallet is required")
	}

	seen := make(map[string]bool, len(inv.Milestones))
	for _, ms := range inv.Milestones {
		if ms.ID == "" {
			return validationErrf("milestone_id", "milestone %d has no id", ms.Order)
		}
		if seen[ms.ID] {
			return validationErrf("milestone_id", "duplicate milestone id %q", ms.ID)
		}
		seen[ms.ID] = true
		if ms.AmountCents <= 0 {
			return validationErrf("milestone_amount", "milestone %q amount must be positive", ms.ID)
		}
		if ms.Percentage <= 0 {
			return validationErrf("milestone_percentage", "milestone %q percentage must be positive", ms.ID)
		}
	}

	ordered := make([]models.Milestone, len(inv.Milestones))
	copy(ordered, inv.Milestones)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	if ordered[0].Order != 1 {
		return validationErrf("milestone_order", "milestone sequence must start at order 1, got %d", ordered[0].Order)
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Order <= ordered[i-1].Order {
			return validationErrf("milestone_order", "milestone orders must be strictly increasing, %d repeats", ordered[i].Order)
		}
	}

	var sumCents int64
	var sumPercent float64
	for _, ms := range inv.Milestones {
		sumCents += ms.AmountCents
		sumPercent += ms.Percentage
	}
	if math.Abs(sumPercent-100) > percentTolerance {
		return validationErrf("percentage_sum", "milestone percentages must sum to 100, got %.2f", sumPercent)
	}
	if diff := sumCents - inv.TotalCents; diff > centsTolerance || diff < -centsTolerance {
		return validationErrf("amount_sum", "milestone amounts sum to %d cents, invoice total is %d cents", sumCents, inv.TotalCents)
	}
	return nil
}
