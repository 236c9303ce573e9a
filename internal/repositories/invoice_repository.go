package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pilotage-service/internal/models"
)

type InvoiceRepository interface {
	UpsertInvoice(ctx context.Context, tx *sql.Tx, rec *models.InvoiceRecord) error
	GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*models.InvoiceRecord, error)
	ListInvoicesByDate(ctx context.Context, fromDate, toDate string) ([]*models.InvoiceRecord, error)
}

type invoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// UpsertInvoice inserts the invoice or replaces the stored one with the same number.
func (r *invoiceRepository) UpsertInvoice(ctx context.Context, tx *sql.Tx, rec *models.InvoiceRecord) error {
	payload, err := json.Marshal(rec.Invoice)
	if err != nil {
		return fmt.Errorf("failed to encode invoice %s: %w", rec.Invoice.InvoiceNumber, err)
	}

	query := `
		INSERT INTO invoices (
			invoice_number, client_name, invoice_date, total_ht, payload
		) VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			client_name = VALUES(client_name),
			invoice_date = VALUES(invoice_date),
			total_ht = VALUES(total_ht),
			payload = VALUES(payload)
	`
	result, err := tx.ExecContext(ctx, query,
		rec.Invoice.InvoiceNumber,
		rec.Invoice.ClientName,
		nullDate(rec.Invoice.InvoiceDate),
		nullFloat(rec.Invoice.TotalHT),
		payload,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

func (r *invoiceRepository) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*models.InvoiceRecord, error) {
	query := `
		SELECT id, payload, created_at, updated_at
		FROM invoices
		WHERE invoice_number = ?
	`
	rec, err := scanInvoice(r.db.QueryRowContext(ctx, query, invoiceNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoice %s: %w", invoiceNumber, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *invoiceRepository) ListInvoicesByDate(ctx context.Context, fromDate, toDate string) ([]*models.InvoiceRecord, error) {
	query := `
		SELECT id, payload, created_at, updated_at
		FROM invoices
		WHERE invoice_date BETWEEN ? AND ?
		ORDER BY invoice_date, id
	`
	rows, err := r.db.QueryContext(ctx, query, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.InvoiceRecord
	for rows.Next() {
		rec, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func scanInvoice(row scanner) (*models.InvoiceRecord, error) {
	rec := &models.InvoiceRecord{}
	var payload []byte
	if err := row.Scan(&rec.ID, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &rec.Invoice); err != nil {
		return nil, fmt.Errorf("failed to decode invoice %d: %w", rec.ID, err)
	}
	return rec, nil
}
