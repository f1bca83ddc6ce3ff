package invoice

import (
	"context"
	"sync"

	"github.com/payflow/backend/internal/models"
)

// Store is the persistence boundary for the ledger. Implementations must
// return copies the caller may mutate freely, report ErrNotFound for unknown
// ids, and list invoices most-recent-first.
type Store interface {
	Insert(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, id string) (*models.Invoice, error)
	List(ctx context.Context) ([]*models.Invoice, error)
	Update(ctx context.Context, inv *models.Invoice) error
}

// MemStore is the in-memory Store used in tests and single-process demo
// deployments. New invoices go to the head of the list.
type MemStore struct {
	mu       sync.RWMutex
	invoices map[string]*models.Invoice
	order    []string
}

func NewMemStore() *MemStore {
	return &MemStore{invoices: make(map[string]*models.Invoice)}
}

var _ Store = (*MemStore)(nil)

func (m *MemStore) Insert(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ID]; ok {
		return validationErrf("invoice_id", "invoice id %q already exists", inv.ID)
	}
	m.invoices[inv.ID] = inv.Clone()
	m.order = append([]string{inv.ID}, m.order...)
	return nil
}

func (m *MemStore) Get(_ context.Context, id string) (*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inv.Clone(), nil
}

func (m *MemStore) List(_ context.Context) ([]*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Invoice, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.invoices[id].Clone())
	}
	return out, nil
}

func (m *MemStore) Update(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ID]; !ok {
		return ErrNotFound
	}
	m.invoices[inv.ID] = inv.Clone()
	return nil
}
