package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payflow/backend/internal/invoice"
	"github.com/payflow/backend/internal/models"
)

// InvoiceRepo is the Postgres-backed invoice store. Milestones are stored as
// a jsonb column: they are created and updated only as part of their
// invoice, never addressed relationally.
type InvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

var _ invoice.Store = (*InvoiceRepo)(nil)

// EnsureSchema creates the invoices table if it does not exist yet.
func (r *InvoiceRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS invoices (
			id                text PRIMARY KEY,
			freelancer_wallet text NOT NULL,
			client_wallet     text,
			client_email      text,
			client_name       text NOT NULL DEFAULT '',
			title             text NOT NULL,
			description       text NOT NULL DEFAULT '',
			total_cents       bigint NOT NULL,
			currency          text NOT NULL,
			category          text NOT NULL DEFAULT '',
			milestones        jsonb NOT NULL,
			status            text NOT NULL,
			client_message    text NOT NULL DEFAULT '',
			created_at        timestamptz NOT NULL
		)
	`)
	return err
}

func (r *InvoiceRepo) Insert(ctx context.Context, inv *models.Invoice) error {
	milestones, err := json.Marshal(inv.Milestones)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO invoices (id, freelancer_wallet, client_wallet, client_email, client_name, title, description, total_cents, currency, category, milestones, status, client_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, inv.ID, inv.FreelancerWallet, inv.ClientWallet, inv.ClientEmail, inv.ClientName, inv.Title, inv.Description, inv.TotalCents, inv.Currency, inv.Category, milestones, inv.Status, inv.ClientMessage, inv.CreatedAt)
	return err
}

func (r *InvoiceRepo) Get(ctx context.Context, id string) (*models.Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, freelancer_wallet, client_wallet, client_email, client_name, title, description, total_cents, currency, category, milestones, status, client_message, created_at
		FROM invoices WHERE id = $1
	`, id)
	return scanInvoice(row)
}

func (r *InvoiceRepo) List(ctx context.Context) ([]*models.Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, freelancer_wallet, client_wallet, client_email, client_name, title, description, total_cents, currency, category, milestones, status, client_message, created_at
		FROM invoices ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) Update(ctx context.Context, inv *models.Invoice) error {
	milestones, err := json.Marshal(inv.Milestones)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET client_wallet = $2, client_email = $3, milestones = $4, status = $5, client_message = $6
		WHERE id = $1
	`, inv.ID, inv.ClientWallet, inv.ClientEmail, milestones, inv.Status, inv.ClientMessage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return invoice.ErrNotFound
	}
	return nil
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	var milestones []byte
	err := row.Scan(&inv.ID, &inv.FreelancerWallet, &inv.ClientWallet, &inv.ClientEmail, &inv.ClientName, &inv.Title, &inv.Description, &inv.TotalCents, &inv.Currency, &inv.Category, &milestones, &inv.Status, &inv.ClientMessage, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(milestones, &inv.Milestones); err != nil {
		return nil, fmt.Errorf("unmarshal milestones: %w", err)
	}
	return &inv, nil
}
