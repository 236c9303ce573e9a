package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pilotage-service/internal/models"
	"pilotage-service/internal/report"
	"pilotage-service/internal/services"
)

// MockIngestionService is a mock implementation of handlers.IngestionService.
type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) IngestInvoices(ctx context.Context, invoices []models.Invoice) (*services.IngestionResult, error) {
	args := m.Called(ctx, invoices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.IngestionResult), args.Error(1)
}

func (m *MockIngestionService) IngestCostDocuments(ctx context.Context, docs []models.CostDocument) (*services.IngestionResult, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.IngestionResult), args.Error(1)
}

func (m *MockIngestionService) GetInvoice(ctx context.Context, invoiceNumber string) (*models.InvoiceRecord, error) {
	args := m.Called(ctx, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceRecord), args.Error(1)
}

// MockReconciliationService is a mock implementation of handlers.ReconciliationService.
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) StartReconciliation(ctx context.Context, fromDate, toDate string) (*services.ReconciliationResult, error) {
	args := m.Called(ctx, fromDate, toDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReconciliationResult), args.Error(1)
}

func (m *MockReconciliationService) GetRun(ctx context.Context, runID string) (*services.RunDetails, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RunDetails), args.Error(1)
}

func (m *MockReconciliationService) GetRunReport(ctx context.Context, runID string) (*report.Report, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}

func (m *MockReconciliationService) ExportRun(ctx context.Context, runID string, refresh bool) (*services.ExportResult, error) {
	args := m.Called(ctx, runID, refresh)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExportResult), args.Error(1)
}

func (m *MockReconciliationService) Evaluate(ctx context.Context, input services.EvaluateInput) (*report.Report, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}
