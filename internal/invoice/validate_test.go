package invoice

import (
	"errors"
	"testing"

	"github.com/payflow/backend/internal/models"
)

func validDraft() *models.Invoice {
	return &models.Invoice{
		FreelancerWallet: "0x1a2b3c4d5e6f",
		ClientName:       "Sara Tech",
		Title:            "Website Development",
		TotalCents:       100000,
		Currency:         "MNEE",
		Milestones: []models.Milestone{
			{ID: "MS-1", Title: "Upfront", AmountCents: 30000, Percentage: 30, Order: 1},
			{ID: "MS-2", Title: "Build", AmountCents: 40000, Percentage: 40, Order: 2},
			{ID: "MS-3", Title: "Delivery", AmountCents: 30000, Percentage: 30, Order: 3},
		},
	}
}

func TestValidateDraft_Valid(t *testing.T) {
	if err := ValidateDraft(validDraft()); err != nil {
		t.Fatalf("want valid draft, got %v", err)
	}
}

func TestValidateDraft_Rules(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*models.Invoice)
		wantRule string
	}{
		{
			name:     "no milestones",
			mutate:   func(i *models.Invoice) { i.Milestones = nil },
			wantRule: "milestones",
		},
		{
			name:     "zero total",
			mutate:   func(i *models.Invoice) { i.TotalCents = 0 },
			wantRule: "total_amount",
		},
		{
			name:     "duplicate milestone id",
			mutate:   func(i *models.Invoice) { i.Milestones[1].ID = "MS-1" },
			wantRule: "milestone_id",
		},
		{
			name:     "missing milestone id",
			mutate:   func(i *models.Invoice) { i.Milestones[2].ID = "" },
			wantRule: "milestone_id",
		},
		{
			name:     "orders not starting at 1",
			mutate:   func(i *models.Invoice) { i.Milestones[0].Order = 2; i.Milestones[1].Order = 3; i.Milestones[2].Order = 4 },
			wantRule: "milestone_order",
		},
		{
			name:     "duplicate order",
			mutate:   func(i *models.Invoice) { i.Milestones[2].Order = 2 },
			wantRule: "milestone_order",
		},
		{
			name:     "percentages sum to 99",
			mutate:   func(i *models.Invoice) { i.Milestones[2].Percentage = 29 },
			wantRule: "percentage_sum",
		},
		{
			name:     "amounts do not sum to total",
			mutate:   func(i *models.Invoice) { i.Milestones[2].AmountCents = 20000 },
			wantRule: "amount_sum",
		},
		{
			name:     "negative milestone amount",
			mutate:   func(i *models.Invoice) { i.Milestones[0].AmountCents = -30000 },
			wantRule: "milestone_amount",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(draft)
			err := ValidateDraft(draft)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want *ValidationError, got %v", err)
			}
			if verr.Rule != tc.wantRule {
				t.Fatalf("want rule %q, got %q (%s)", tc.wantRule, verr.Rule, verr.Detail)
			}
		})
	}
}

func TestValidateDraft_ToleratesRounding(t *testing.T) {
	draft := validDraft()
	// One cent off and 0.01 of a percentage point off are provider rounding,
	// not errors.
	draft.Milestones[2].AmountCents = 29999
	draft.Milestones[2].Percentage = 29.99
	if err := ValidateDraft(draft); err != nil {
		t.Fatalf("want rounding tolerated, got %v", err)
	}
}

func TestValidateDraft_AllowsOrderGaps(t *testing.T) {
	draft := validDraft()
	draft.Milestones[1].Order = 5
	draft.Milestones[2].Order = 9
	if err := ValidateDraft(draft); err != nil {
		t.Fatalf("orders 1,5,9 should be accepted, got %v", err)
	}
}
