package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"pilotage-service/internal/models"
)

type CostDocumentRepository interface {
	UpsertCostDocument(ctx context.Context, tx *sql.Tx, rec *models.CostDocumentRecord) error
	ListCostDocumentsByDate(ctx context.Context, fromDate, toDate string) ([]*models.CostDocumentRecord, error)
}

type costDocumentRepository struct {
	db *sql.DB
}

func NewCostDocumentRepository(db *sql.DB) CostDocumentRepository {
	return &costDocumentRepository{db: db}
}

// UpsertCostDocument inserts the document or replaces the stored one with the
// same supplier and number.
func (r *costDocumentRepository) UpsertCostDocument(ctx context.Context, tx *sql.Tx, rec *models.CostDocumentRecord) error {
	doc := rec.Document
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode cost document %s: %w", doc.DocNumber, err)
	}

	query := `
		INSERT INTO cost_documents (
			doc_number, supplier, doc_date, invoice_number, shipment_ref, total, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			doc_date = VALUES(doc_date),
			invoice_number = VALUES(invoice_number),
			shipment_ref = VALUES(shipment_ref),
			total = VALUES(total),
			payload = VALUES(payload)
	`
	result, err := tx.ExecContext(ctx, query,
		doc.DocNumber,
		doc.Supplier,
		nullDate(doc.DocDate),
		doc.InvoiceNumber,
		doc.ShipmentRef,
		doc.Total(),
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

// ListCostDocumentsByDate returns the documents dated within the range and
// the undated ones, which can still match by reference.
func (r *costDocumentRepository) ListCostDocumentsByDate(ctx context.Context, fromDate, toDate string) ([]*models.CostDocumentRecord, error) {
	query := `
		SELECT id, payload, created_at, updated_at
		FROM cost_documents
		WHERE doc_date BETWEEN ? AND ?
		   OR doc_date IS NULL
		ORDER BY doc_date, id
	`
	rows, err := r.db.QueryContext(ctx, query, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.CostDocumentRecord
	for rows.Next() {
		rec := &models.CostDocumentRecord{}
		var payload []byte
		if err := rows.Scan(&rec.ID, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Document); err != nil {
			return nil, fmt.Errorf("failed to decode cost document %d: %w", rec.ID, err)
		}
		docs = append(docs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
