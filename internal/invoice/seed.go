package invoice

import (
	"context"
	"time"

	"github.com/payflow/backend/internal/models"
)

func strptr(s string) *string { return &s }

func tsptr(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

// DemoInvoices returns the two sample invoices used for demo deployments:
// one mid-flight (two milestones released, one escrowed) and one completed.
func DemoInvoices() []*models.Invoice {
	return []*models.Invoice{
		{
			ID:               "INV-2026-041",
			FreelancerWallet: "0x1a2b3c4d5e6f",
			ClientWallet:     strptr("0x9c8d7e6f5a4b"),
			ClientEmail:      strptr("sara@tech.io"),
			ClientName:       "Sara Tech",
			Title:            "Website Development - Frontend",
			Description:      "Responsive React frontend for SaaS landing page.",
			TotalCents:       120000,
			Currency:         "MNEE",
			Category:         "Development",
			Status:           models.InvoiceStatusActive,
			CreatedAt:        *tsptr("2026-01-03T10:00:00Z"),
			Milestones: []models.Milestone{
				{ID: "MS-1", Title: "Upfront", Description: "Project kick-off", AmountCents: 36000, Percentage: 30, Order: 1, Status: models.MilestoneStatusReleased, ReleasedAt: tsptr("2026-01-03T11:00:00Z")},
				{ID: "MS-2", Title: "Homepage Complete", Description: "Design to HTML/CSS", AmountCents: 48000, Percentage: 40, Order: 2, Status: models.MilestoneStatusReleased, ReleasedAt: tsptr("2026-01-05T15:00:00Z")},
				{ID: "MS-3", Title: "Final Delivery", Description: "Deployment and testing", AmountCents: 36000, Percentage: 30, Order: 3, Status: models.MilestoneStatusPaid, PaidAt: tsptr("2026-01-05T10:00:00Z")},
			},
		},
		{
			ID:               "INV-2026-038",
			FreelancerWallet: "0x1a2b3c4d5e6f",
			ClientWallet:     strptr("0x7f8e9a2b1c3d"),
			ClientEmail:      strptr("hr@techflow.com"),
			ClientName:       "TechFlow Inc",
			Title:            "Mobile App UI Design",
			Description:      "Design system and 10 screens for iOS app.",
			TotalCents:       65000,
			Currency:         "MNEE",
			Category:         "Design",
			Status:           models.InvoiceStatusCompleted,
			CreatedAt:        *tsptr("2025-12-28T09:00:00Z"),
			Milestones: []models.Milestone{
				{ID: "MS-1", Title: "Final Delivery", Description: "Figma files handoff", AmountCents: 65000, Percentage: 100, Order: 1, Status: models.MilestoneStatusReleased, ReleasedAt: tsptr("2026-01-02T12:00:00Z")},
			},
		},
	}
}

// SeedDemo inserts the demo invoices if the store is empty.
func SeedDemo(ctx context.Context, store Store) error {
	existing, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	// Oldest first, so List returns the newest at the head.
	demos := DemoInvoices()
	for i := len(demos) - 1; i >= 0; i-- {
		if err := store.Insert(ctx, demos[i]); err != nil {
			return err
		}
	}
	return nil
}
