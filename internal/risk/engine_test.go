package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotage-service/internal/models"
)

func newCase(inv models.Invoice, lines ...models.CostLine) models.Case {
	c := models.Case{ID: "C-1", Invoice: inv}
	if len(lines) > 0 {
		c.CostDocs = []models.CostDocument{{DocNumber: "F-1", Lines: lines}}
	}
	return c
}

func codes(alerts []models.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Code)
	}
	return out
}

func TestEvaluateCase_Clean(t *testing.T) {
	c := newCase(models.Invoice{Incoterm: "DAP", TotalHT: models.Float(1000)},
		models.CostLine{Amount: 150, Type: models.CostTransport})

	res := EvaluateCase(c, nil, Options{})
	assert.Equal(t, "C-1", res.CaseID)
	assert.Empty(t, res.Alerts)
	assert.NotNil(t, res.Alerts)
	assert.Equal(t, 100, res.RiskScore)
}

func TestEvaluateCase_TransitCoverage(t *testing.T) {
	t.Run("warning between 0.3 and threshold", func(t *testing.T) {
		c := newCase(models.Invoice{Lines: []models.InvoiceLine{{TotalHT: 50, CostType: models.CostTransit}}},
			models.CostLine{Amount: 100, Type: models.CostTransit})

		res := EvaluateCase(c, nil, Options{})
		require.Len(t, res.Alerts, 1)
		assert.Equal(t, models.AlertTransitLowCoverage, res.Alerts[0].Code)
		assert.Equal(t, models.SeverityWarning, res.Alerts[0].Severity)
		assert.Equal(t, "TRANSIT_LOW_COVERAGE-1", res.Alerts[0].ID)
		assert.Equal(t, 85, res.RiskScore)
	})

	t.Run("blocker below 0.3", func(t *testing.T) {
		c := newCase(models.Invoice{Lines: []models.InvoiceLine{{TotalHT: 20, CostType: models.CostTransit}}},
			models.CostLine{Amount: 100, Type: models.CostDouane})

		res := EvaluateCase(c, nil, Options{})
		require.Len(t, res.Alerts, 1)
		assert.Equal(t, models.SeverityBlocker, res.Alerts[0].Severity)
		assert.Equal(t, 60, res.RiskScore)
	})

	t.Run("not billed fires both rules", func(t *testing.T) {
		c := newCase(models.Invoice{},
			models.CostLine{Amount: 100, Type: models.CostFraisDossier})

		res := EvaluateCase(c, nil, Options{})
		assert.Equal(t, []string{models.AlertTransitLowCoverage, models.AlertTransitNotBilled}, codes(res.Alerts))
		assert.Equal(t, "TRANSIT_NOT_BILLED-2", res.Alerts[1].ID)
		assert.Equal(t, 20, res.RiskScore)

		require.NotNil(t, res.Alerts[0].Value, "zero coverage is still reported")
		assert.Equal(t, 0.0, *res.Alerts[0].Value)
		require.NotNil(t, res.Alerts[1].Value)
		assert.Equal(t, 100.0, *res.Alerts[1].Value)
	})

	t.Run("custom threshold from rule set", func(t *testing.T) {
		c := newCase(models.Invoice{Lines: []models.InvoiceLine{{TotalHT: 70, CostType: models.CostTransit}}},
			models.CostLine{Amount: 100, Type: models.CostTransit})

		assert.Empty(t, EvaluateCase(c, nil, Options{}).Alerts)
		res := EvaluateCase(c, nil, OptionsFromRules(models.RuleSet{CoverageThreshold: 0.8}))
		assert.Equal(t, []string{models.AlertTransitLowCoverage}, codes(res.Alerts))
	})
}

func TestEvaluateCase_DDPWithoutCustoms(t *testing.T) {
	c := newCase(models.Invoice{Incoterm: "DDP"},
		models.CostLine{Amount: 300, Type: models.CostTransport})

	res := EvaluateCase(c, nil, Options{})
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, models.AlertDDPNoCustoms, res.Alerts[0].Code)
	assert.Equal(t, models.SeverityWarning, res.Alerts[0].Severity)
	assert.Nil(t, res.Alerts[0].Value)

	withCustoms := newCase(models.Invoice{Incoterm: "DDP", Lines: []models.InvoiceLine{{TotalHT: 100, CostType: models.CostTransit}}},
		models.CostLine{Amount: 100, Type: models.CostDouane})
	assert.Empty(t, EvaluateCase(withCustoms, nil, Options{}).Alerts)
}

func TestEvaluateCase_AmountMismatch(t *testing.T) {
	inv := models.Invoice{TotalHT: models.Float(1000), TotalTVA: models.Float(200), TotalTTC: models.Float(1250)}

	res := EvaluateCase(newCase(inv), nil, Options{AmountTolerance: 1})
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, models.AlertAmountMismatch, res.Alerts[0].Code)
	assert.Equal(t, models.SeverityWarning, res.Alerts[0].Severity)
	assert.Contains(t, res.Alerts[0].Message, "50.00")
	require.NotNil(t, res.Alerts[0].Value)
	assert.Equal(t, 50.0, *res.Alerts[0].Value)

	inv.TotalTTC = models.Float(1200.5)
	assert.Empty(t, EvaluateCase(newCase(inv), nil, Options{}).Alerts)

	inv.TotalTVA = nil
	inv.TotalTTC = models.Float(5000)
	assert.Empty(t, EvaluateCase(newCase(inv), nil, Options{}).Alerts)
}

func TestEvaluateCase_Destination(t *testing.T) {
	ref := &models.ReferenceData{Destinations: []string{"Sénégal", "Côte d'Ivoire"}}

	res := EvaluateCase(newCase(models.Invoice{Destination: "Mali"}), ref, Options{})
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, models.SeverityInfo, res.Alerts[0].Severity)
	assert.Equal(t, 100, res.RiskScore)

	assert.Empty(t, EvaluateCase(newCase(models.Invoice{Destination: "senegal"}), ref, Options{}).Alerts)
	assert.Empty(t, EvaluateCase(newCase(models.Invoice{Destination: "Mali"}), nil, Options{}).Alerts)
	assert.Empty(t, EvaluateCase(newCase(models.Invoice{}), ref, Options{}).Alerts)
}

func TestEvaluateCase_AllRulesInOrder(t *testing.T) {
	inv := models.Invoice{
		Incoterm:    "DDP",
		Destination: "Atlantis",
		TotalHT:     models.Float(1000),
		TotalTVA:    models.Float(0),
		TotalTTC:    models.Float(1100),
	}
	c := newCase(inv, models.CostLine{Amount: 100, Type: models.CostTransit})

	res := EvaluateCase(c, &models.ReferenceData{}, Options{})
	assert.Equal(t, []string{
		models.AlertTransitLowCoverage,
		models.AlertTransitNotBilled,
		models.AlertDDPNoCustoms,
		models.AlertAmountMismatch,
		models.AlertDestinationUnknown,
	}, codes(res.Alerts))
	assert.Equal(t, "DESTINATION_UNKNOWN-5", res.Alerts[4].ID)
	// 2 blockers, 2 warnings
	assert.Equal(t, 0, res.RiskScore)
}

func TestScore_Floor(t *testing.T) {
	alerts := []models.Alert{
		{Severity: models.SeverityBlocker},
		{Severity: models.SeverityBlocker},
		{Severity: models.SeverityBlocker},
		{Severity: models.SeverityWarning},
		{Severity: models.SeverityWarning},
		{Severity: models.SeverityInfo},
	}
	assert.Equal(t, 0, Score(alerts))
	assert.Equal(t, 70, Score(alerts[3:]))
	assert.Equal(t, 100, Score(nil))
}
