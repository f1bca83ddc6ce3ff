package models

import "time"

// Invoice and milestone status enums. A milestone is "paid" once the client
// has funded escrow for it and "released" once those funds have gone out to
// the freelancer.
const (
	InvoiceStatusPending   = "pending"
	InvoiceStatusActive    = "active"
	InvoiceStatusCompleted = "completed"
	InvoiceStatusCancelled = "cancelled"

	MilestoneStatusPending  = "pending"
	MilestoneStatusPaid     = "paid"
	MilestoneStatusReleased = "released"
)

// Milestone is one independently payable share of an invoice. Amount,
// percentage and order are fixed at creation; only Status and its
// timestamps change afterwards. Order, not slice position, defines the
// payment sequence.
type Milestone struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Percentage  float64    `json:"percentage"`
	Order       int        `json:"order"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
}

type Invoice struct {
	ID               string      `json:"id"`
	FreelancerWallet string      `json:"freelancer_wallet"`
	ClientWallet     *string     `json:"client_wallet,omitempty"`
	ClientEmail      *string     `json:"client_email,omitempty"`
	ClientName       string      `json:"client_name"`
	Title            string      `json:"title"`
	Description      string      `json:"description,omitempty"`
	TotalCents       int64       `json:"total_cents"`
	Currency         string      `json:"currency"`
	Category         string      `json:"category,omitempty"`
	Milestones       []Milestone `json:"milestones"`
	Status           string      `json:"status"`
	ClientMessage    string      `json:"client_message,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Financials is the exact cent breakdown of an invoice's value by milestone
// state. ReleasedCents + EscrowedCents + PendingCents always equals the
// invoice total.
type Financials struct {
	ReleasedCents int64 `json:"released_cents"`
	EscrowedCents int64 `json:"escrowed_cents"`
	PendingCents  int64 `json:"pending_cents"`
}

// Milestone returns a pointer to the milestone with the given id, or nil.
func (i *Invoice) Milestone(id string) *Milestone {
	for idx := range i.Milestones {
		if i.Milestones[idx].ID == id {
			return &i.Milestones[idx]
		}
	}
	return nil
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate ledger state in place.
func (i *Invoice) Clone() *Invoice {
	cp := *i
	if i.ClientWallet != nil {
		w := *i.ClientWallet
		cp.ClientWallet = &w
	}
	if i.ClientEmail != nil {
		e := *i.ClientEmail
		cp.ClientEmail = &e
	}
	cp.Milestones = make([]Milestone, len(i.Milestones))
	for idx, ms := range i.Milestones {
		if ms.PaidAt != nil {
			t := *ms.PaidAt
			ms.PaidAt = &t
		}
		if ms.ReleasedAt != nil {
			t := *ms.ReleasedAt
			ms.ReleasedAt = &t
		}
		cp.Milestones[idx] = ms
	}
	return &cp
}
