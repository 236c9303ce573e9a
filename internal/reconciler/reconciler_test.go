package reconciler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotage-service/internal/costs"
	"pilotage-service/internal/models"
)

func testRules() models.RuleSet {
	return models.RuleSet{
		CoverageThreshold: 0.6,
		KeywordRules: []models.KeywordRule{
			{ID: "douane", Keywords: []string{"douane"}, CostType: models.CostDouane, AppliesTo: models.TargetAny},
			{ID: "transit", Keywords: []string{"transit"}, CostType: models.CostTransit, AppliesTo: models.TargetAny},
			{ID: "transport", Keywords: []string{"fret", "transport"}, CostType: models.CostTransport, AppliesTo: models.TargetAny},
		},
	}
}

func fixture() ([]models.Invoice, []models.CostDocument) {
	invoices := []models.Invoice{
		{InvoiceNumber: "INV-1", ClientName: "ACME", InvoiceDate: "2024-01-05", Currency: "EUR", TotalHT: models.Float(1000), Incoterm: "DAP"},
		{ClientName: "Globex", InvoiceDate: "2024-01-10", Currency: "EUR", TotalHT: models.Float(2000)},
		{InvoiceNumber: "INV-3", ClientName: "Initech", InvoiceDate: "2024-02-10", Currency: "EUR", TotalHT: models.Float(500), ShipmentRef: "SHP-3"},
		{InvoiceNumber: "INV-4", ClientName: "Umbrella", Currency: "EUR"},
	}
	docs := []models.CostDocument{
		{DocNumber: "F-1", DocDate: "2024-01-03", InvoiceNumber: "INV-1", Supplier: "Kuehne", Lines: []models.CostLine{{Label: "Fret routier", Amount: 150}}},
		{DocNumber: "F-2", DocDate: "2024-01-15", Supplier: "DHL", Lines: []models.CostLine{{Label: "Transport aérien", Amount: 2100}}},
		{DocNumber: "F-3", DocDate: "2024-02-01", ShipmentRef: "SHP-3", Lines: []models.CostLine{{Label: "Droits de douane", Amount: 80}}},
	}
	return invoices, docs
}

func TestReconcile_OrderAndIDs(t *testing.T) {
	invoices, docs := fixture()
	cases := Reconcile(invoices, docs, testRules())

	require.Len(t, cases, len(invoices))
	assert.Equal(t, "INV-1", cases[0].ID)
	assert.Equal(t, "case-2", cases[1].ID)
	assert.Equal(t, "INV-3", cases[2].ID)
	assert.Equal(t, "INV-4", cases[3].ID)

	assert.Equal(t, models.MatchByInvoiceNumber, cases[0].MatchedBy)
	assert.Equal(t, models.MatchByClientDateAmount, cases[1].MatchedBy)
	assert.Equal(t, models.MatchByShipmentRef, cases[2].MatchedBy)
	assert.Equal(t, models.MatchByNone, cases[3].MatchedBy)
	assert.Equal(t, models.MatchStatusNone, cases[3].MatchStatus)
	assert.Empty(t, cases[3].CostDocs)
	assert.Equal(t, []string{"totalHT", "invoiceDate", "totalTVA", "totalTTC"}, cases[3].MissingFields)
}

func TestReconcile_BlankInvoiceNumber(t *testing.T) {
	invoices := []models.Invoice{
		{InvoiceNumber: "  ", ClientName: "ACME", Currency: "EUR"},
		{InvoiceNumber: " INV-2 ", ClientName: "ACME", Currency: "EUR"},
	}
	docs := []models.CostDocument{
		{DocNumber: "F-1", InvoiceNumber: "  ", Lines: []models.CostLine{{Label: "Fret", Amount: 10}}},
	}

	cases := Reconcile(invoices, docs, testRules())
	require.Len(t, cases, 2)
	assert.Equal(t, "case-1", cases[0].ID)
	assert.Equal(t, models.MatchByNone, cases[0].MatchedBy)
	assert.Empty(t, cases[0].CostDocs)
	assert.Contains(t, cases[0].MissingFields, "invoiceNumber")
	assert.Equal(t, "INV-2", cases[1].ID)
}

func TestReconcile_ExactInvoiceMatchScenario(t *testing.T) {
	invoices, docs := fixture()
	c := Reconcile(invoices[:1], docs, testRules())[0]

	assert.Equal(t, models.MatchByInvoiceNumber, c.MatchedBy)
	assert.Equal(t, 95.0, c.MatchScore)
	assert.Equal(t, models.MatchStatusMatch, c.MatchStatus)
	require.Len(t, c.CostDocs, 1)
	assert.Equal(t, models.CostTransport, c.CostDocs[0].Lines[0].Type)

	cov := costs.TransitCoverage(c)
	assert.Zero(t, cov.TransitCosts)
	assert.Equal(t, 1.0, cov.Coverage)
}

func TestReconcile_AmountFallbackScenario(t *testing.T) {
	invoices, docs := fixture()
	c := Reconcile(invoices[1:2], docs, testRules())[0]

	assert.Equal(t, models.MatchByClientDateAmount, c.MatchedBy)
	assert.InDelta(t, 85.0, c.MatchScore, 1e-9)
	assert.Equal(t, models.MatchStatusMatch, c.MatchStatus)
}

func TestReconcile_SharedDocumentsStayInPool(t *testing.T) {
	invoices := []models.Invoice{
		{InvoiceNumber: "A", ShipmentRef: "CONSOL-1"},
		{InvoiceNumber: "B", ShipmentRef: "CONSOL-1"},
	}
	docs := []models.CostDocument{{DocNumber: "F-1", ShipmentRef: "CONSOL-1", Lines: []models.CostLine{{Label: "fret", Amount: 10}}}}

	cases := Reconcile(invoices, docs, testRules())
	require.Len(t, cases, 2)
	assert.Len(t, cases[0].CostDocs, 1)
	assert.Len(t, cases[1].CostDocs, 1)
}

func TestReconcile_IdempotentAndPure(t *testing.T) {
	invoices, docs := fixture()
	first := Reconcile(invoices, docs, testRules())
	second := Reconcile(invoices, docs, testRules())

	assert.Equal(t, first, second)
	assert.Equal(t, models.CostType(""), docs[0].Lines[0].Type, "input documents must not be classified in place")
}

func TestReconcile_Empty(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil, models.RuleSet{}))
}

func TestReconcileParallel_MatchesSequential(t *testing.T) {
	invoices, docs := fixture()
	for i := 0; i < 50; i++ {
		invoices = append(invoices, models.Invoice{
			InvoiceNumber: fmt.Sprintf("BULK-%d", i),
			InvoiceDate:   "2024-01-12",
			TotalHT:       models.Float(float64(1900 + i)),
		})
	}

	want := Reconcile(invoices, docs, testRules())
	got, err := ReconcileParallel(context.Background(), invoices, docs, testRules(), Options{}, 4)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReconcileParallel_Cancelled(t *testing.T) {
	invoices, docs := fixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReconcileParallel(ctx, invoices, docs, testRules(), Options{}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
