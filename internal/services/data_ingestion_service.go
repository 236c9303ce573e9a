package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"pilotage-service/internal/database"
	"pilotage-service/internal/models"
	"pilotage-service/internal/repositories"
)

type DataIngestionService struct {
	db                 *sql.DB
	invoiceRepo        repositories.InvoiceRepository
	costDocRepo        repositories.CostDocumentRepository
	reconciliationRepo repositories.ReconciliationRepository
}

func NewDataIngestionService(
	db *sql.DB,
	invoiceRepo repositories.InvoiceRepository,
	costDocRepo repositories.CostDocumentRepository,
	reconciliationRepo repositories.ReconciliationRepository,
) *DataIngestionService {
	return &DataIngestionService{
		db:                 db,
		invoiceRepo:        invoiceRepo,
		costDocRepo:        costDocRepo,
		reconciliationRepo: reconciliationRepo,
	}
}

type IngestionResult struct {
	Success      bool                   `json:"success"`
	RecordsCount int                    `json:"records_count"`
	Errors       []string               `json:"errors,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// IngestInvoices stores the valid invoices and reports the rejected ones.
// Valid records are committed even when others fail.
func (s *DataIngestionService) IngestInvoices(ctx context.Context, invoices []models.Invoice) (*IngestionResult, error) {
	result := newIngestionResult()

	err := database.WithTx(ctx, s.db, func(tx *database.Transaction) error {
		for i, inv := range invoices {
			inv = normalizeInvoice(inv)
			if err := validateInvoice(inv); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Invalid invoice #%d %s: %v", i+1, inv.InvoiceNumber, err))
				continue
			}
			rec := &models.InvoiceRecord{Invoice: inv}
			if err := s.invoiceRepo.UpsertInvoice(ctx, tx.Tx, rec); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to store invoice %s: %v", inv.InvoiceNumber, err))
				continue
			}
			result.RecordsCount++
		}
		return s.audit(ctx, tx, models.AuditActionInvoicesImported, len(invoices), result)
	})
	if err != nil {
		return nil, err
	}

	result.finish(len(invoices))
	slog.Info("invoices imported", "received", len(invoices), "stored", result.RecordsCount, "rejected", len(result.Errors))
	return result, nil
}

// IngestCostDocuments stores the valid cost documents and reports the rejected ones.
func (s *DataIngestionService) IngestCostDocuments(ctx context.Context, docs []models.CostDocument) (*IngestionResult, error) {
	result := newIngestionResult()

	err := database.WithTx(ctx, s.db, func(tx *database.Transaction) error {
		for i, doc := range docs {
			if err := validateCostDocument(doc); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Invalid cost document #%d %s: %v", i+1, doc.DocNumber, err))
				continue
			}
			rec := &models.CostDocumentRecord{Document: normalizeCostDocument(doc)}
			if err := s.costDocRepo.UpsertCostDocument(ctx, tx.Tx, rec); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to store cost document %s: %v", doc.DocNumber, err))
				continue
			}
			result.RecordsCount++
		}
		return s.audit(ctx, tx, models.AuditActionCostDocsImported, len(docs), result)
	})
	if err != nil {
		return nil, err
	}

	result.finish(len(docs))
	slog.Info("cost documents imported", "received", len(docs), "stored", result.RecordsCount, "rejected", len(result.Errors))
	return result, nil
}

// GetInvoice returns a stored invoice by its number.
func (s *DataIngestionService) GetInvoice(ctx context.Context, invoiceNumber string) (*models.InvoiceRecord, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return nil, fmt.Errorf("invoice number is required: %w", models.ErrInvalidInput)
	}
	rec, err := s.invoiceRepo.GetInvoiceByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return rec, nil
}

func (s *DataIngestionService) audit(ctx context.Context, tx *database.Transaction, action string, total int, result *IngestionResult) error {
	if result.RecordsCount == 0 {
		return nil
	}
	auditDetails, _ := json.Marshal(map[string]interface{}{
		"total_records": total,
		"successful":    result.RecordsCount,
		"failed":        len(result.Errors),
	})
	audit := &models.ReconciliationAudit{
		Action:  action,
		Details: auditDetails,
		UserID:  systemUser,
	}
	if err := s.reconciliationRepo.CreateAuditEntry(ctx, tx.Tx, audit); err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

func newIngestionResult() *IngestionResult {
	return &IngestionResult{
		Success: true,
		Errors:  []string{},
		Details: make(map[string]interface{}),
	}
}

func (r *IngestionResult) finish(total int) {
	r.Success = len(r.Errors) == 0
	r.Details["total_records"] = total
	r.Details["successful"] = r.RecordsCount
	r.Details["failed"] = len(r.Errors)
}

func validateInvoice(inv models.Invoice) error {
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		return fmt.Errorf("invoice_number is required")
	}
	if _, ok := models.ParseDate(inv.InvoiceDate); !ok {
		return fmt.Errorf("invoice_date is required (YYYY-MM-DD or DD/MM/YYYY)")
	}
	if strings.TrimSpace(inv.ClientName) == "" {
		return fmt.Errorf("client_name is required")
	}
	for i, line := range inv.Lines {
		if line.CostType != "" && !line.CostType.Valid() {
			return fmt.Errorf("line %d has unknown cost_type %q", i+1, line.CostType)
		}
	}
	return nil
}

func validateCostDocument(doc models.CostDocument) error {
	if strings.TrimSpace(doc.DocNumber) == "" {
		return fmt.Errorf("doc_number is required")
	}
	if len(doc.Lines) == 0 {
		return fmt.Errorf("at least one line is required")
	}
	if doc.DocDate != "" {
		if _, ok := models.ParseDate(doc.DocDate); !ok {
			return fmt.Errorf("doc_date %q is not a valid date", doc.DocDate)
		}
	}
	return nil
}

// normalizeInvoice lower-cases line cost types so "Transit" and "transit" are
// stored alike. Types that stay unknown are left for validation to reject.
func normalizeInvoice(inv models.Invoice) models.Invoice {
	lines := make([]models.InvoiceLine, len(inv.Lines))
	for i, line := range inv.Lines {
		if folded := models.CostType(strings.ToLower(strings.TrimSpace(string(line.CostType)))); folded.Valid() {
			line.CostType = folded
		}
		lines[i] = line
	}
	inv.Lines = lines
	return inv
}

// normalizeCostDocument folds free-form line types onto the known taxonomy.
func normalizeCostDocument(doc models.CostDocument) models.CostDocument {
	lines := make([]models.CostLine, len(doc.Lines))
	for i, line := range doc.Lines {
		if line.Type != "" {
			line.Type = models.ParseCostType(string(line.Type))
		}
		lines[i] = line
	}
	doc.Lines = lines
	return doc
}
