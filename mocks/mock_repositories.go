package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"pilotage-service/internal/models"
)

// MockInvoiceRepository is a mock implementation of repositories.InvoiceRepository.
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) UpsertInvoice(ctx context.Context, tx *sql.Tx, rec *models.InvoiceRecord) error {
	args := m.Called(ctx, Tx(tx), rec)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*models.InvoiceRecord, error) {
	args := m.Called(ctx, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceRepository) ListInvoicesByDate(ctx context.Context, fromDate, toDate string) ([]*models.InvoiceRecord, error) {
	args := m.Called(ctx, fromDate, toDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InvoiceRecord), args.Error(1)
}

// MockCostDocumentRepository is a mock implementation of repositories.CostDocumentRepository.
type MockCostDocumentRepository struct {
	mock.Mock
}

func (m *MockCostDocumentRepository) UpsertCostDocument(ctx context.Context, tx *sql.Tx, rec *models.CostDocumentRecord) error {
	args := m.Called(ctx, Tx(tx), rec)
	return args.Error(0)
}

func (m *MockCostDocumentRepository) ListCostDocumentsByDate(ctx context.Context, fromDate, toDate string) ([]*models.CostDocumentRecord, error) {
	args := m.Called(ctx, fromDate, toDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CostDocumentRecord), args.Error(1)
}

// MockReconciliationRepository is a mock implementation of repositories.ReconciliationRepository.
type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) CreateRun(ctx context.Context, tx *sql.Tx, run *models.ReconciliationRun) error {
	args := m.Called(ctx, Tx(tx), run)
	return args.Error(0)
}

func (m *MockReconciliationRepository) GetRunByRunID(ctx context.Context, runID string) (*models.ReconciliationRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReconciliationRun), args.Error(1)
}

func (m *MockReconciliationRepository) CreateCase(ctx context.Context, tx *sql.Tx, rec *models.CaseRecord) error {
	args := m.Called(ctx, Tx(tx), rec)
	return args.Error(0)
}

func (m *MockReconciliationRepository) ListCases(ctx context.Context, runID int64) ([]*models.CaseRecord, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CaseRecord), args.Error(1)
}

func (m *MockReconciliationRepository) CreateAlert(ctx context.Context, tx *sql.Tx, alert *models.AlertRecord) error {
	args := m.Called(ctx, Tx(tx), alert)
	return args.Error(0)
}

func (m *MockReconciliationRepository) ListAlerts(ctx context.Context, runID int64) ([]*models.AlertRecord, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AlertRecord), args.Error(1)
}

func (m *MockReconciliationRepository) CreateAuditEntry(ctx context.Context, tx *sql.Tx, audit *models.ReconciliationAudit) error {
	args := m.Called(ctx, Tx(tx), audit)
	return args.Error(0)
}
