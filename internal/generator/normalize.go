package generator

import (
	"fmt"
	"math"

	"github.com/payflow/backend/internal/models"
)

// Draft is the provider's structured output, before any local id or order
// assignment. Amounts are in currency units, as the provider returns them.
type Draft struct {
	Title       string           `json:"title"`
	ClientName  string           `json:"client_name"`
	Description string           `json:"description"`
	TotalAmount float64          `json:"total_amount"`
	Currency    string           `json:"currency"`
	Category    string           `json:"category"`
	Milestones  []DraftMilestone `json:"milestones"`
}

type DraftMilestone struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Percentage  float64 `json:"percentage"`
}

// Reconciliation tolerances applied after rounding to cents. Drafts outside
// them are rejected rather than silently adjusted — the provider's numbers
// are the provider's to fix on retry.
const (
	percentTolerance = 0.01
	centsTolerance   = 1
)

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// NormalizeDraft converts a provider draft into a candidate invoice:
// amounts become integer cents, milestone ids and orders are assigned
// sequentially in the order returned, and totals are re-checked locally
// even though the provider schema already constrains them.
func NormalizeDraft(d *Draft, freelancerWallet string) (*models.Invoice, error) {
	if len(d.Milestones) == 0 {
		return nil, fmt.Errorf("%w: no milestones", ErrBadDraft)
	}
	totalCents := toCents(d.TotalAmount)
	if totalCents <= 0 {
		return nil, fmt.Errorf("%w: total amount %.2f is not positive", ErrBadDraft, d.TotalAmount)
	}

	var sumCents int64
	var sumPercent float64
	milestones := make([]models.Milestone, len(d.Milestones))
	for i, dm := range d.Milestones {
		cents := toCents(dm.Amount)
		if cents <= 0 {
			return nil, fmt.Errorf("%w: milestone %d amount %.2f is not positive", ErrBadDraft, i+1, dm.Amount)
		}
		sumCents += cents
		sumPercent += dm.Percentage
		milestones[i] = models.Milestone{
			ID:          models.NewMilestoneID(i + 1),
			Title:       dm.Title,
			Description: dm.Description,
			AmountCents: cents,
			Percentage:  dm.Percentage,
			Order:       i + 1,
			Status:      models.MilestoneStatusPending,
		}
	}
	if math.Abs(sumPercent-100) > percentTolerance {
		return nil, fmt.Errorf("%w: percentages sum to %.2f, want 100", ErrBadDraft, sumPercent)
	}
	if diff := sumCents - totalCents; diff > centsTolerance || diff < -centsTolerance {
		return nil, fmt.Errorf("%w: milestone amounts sum to %d cents, total is %d cents", ErrBadDraft, sumCents, totalCents)
	}

	currency := d.Currency
	if currency == "" {
		currency = "MNEE"
	}
	return &models.Invoice{
		FreelancerWallet: freelancerWallet,
		ClientName:       d.ClientName,
		Title:            d.Title,
		Description:      d.Description,
		TotalCents:       totalCents,
		Currency:         currency,
		Category:         d.Category,
		Milestones:       milestones,
		Status:           models.InvoiceStatusPending,
	}, nil
}
