package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewInvoiceID returns a fresh ledger-unique invoice id. The INV- prefix is
// cosmetic; only uniqueness is contractual.
func NewInvoiceID() string {
	return "INV-" + strings.ToUpper(uuid.NewString()[:8])
}

// NewMilestoneID returns the id for the n-th milestone (1-based) of an
// invoice. Milestone ids only need to be unique within their invoice.
func NewMilestoneID(n int) string {
	return fmt.Sprintf("MS-%d", n)
}

// NewWalletAddress returns a random opaque wallet address. There is no real
// key material behind it; the escrow flow is simulated.
func NewWalletAddress() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return "0x" + hex.EncodeToString(buf)
}
