// Package profitability compares a case's cost structure with fee benchmarks.
package profitability

import (
	"pilotage-service/internal/costs"
	"pilotage-service/internal/models"
)

// DefaultReference is the benchmark table used when none is configured.
// Ranges are percentages of the invoice pre-tax total.
func DefaultReference() models.ProfitabilityReference {
	return models.ProfitabilityReference{
		MinMarginRate: 10,
		FeeBenchmarks: []models.FeeBenchmark{
			{Category: models.CostTransport, Label: "Transport", Min: 5, Max: 15, Target: 10},
			{Category: models.CostDouane, Label: "Douane", Min: 1, Max: 6, Target: 3},
			{Category: models.CostTransit, Label: "Transit", Min: 2, Max: 8, Target: 5},
			{Category: models.CostFraisDossier, Label: "Frais de dossier", Min: 0, Max: 2, Target: 1},
			{Category: models.CostAssurance, Label: "Assurance", Min: 0, Max: 1, Target: 0.5},
		},
	}
}

// EvaluateInvoiceProfitability computes margin, benchmark ratios and the
// overall status of c against ref.
func EvaluateInvoiceProfitability(c models.Case, ref models.ProfitabilityReference) models.ProfitabilityResult {
	summary := costs.Summarize(c)
	revenue := c.Invoice.HT()

	result := models.ProfitabilityResult{
		CaseID:           c.ID,
		Revenue:          revenue,
		TotalCosts:       summary.Totals.Total,
		Margin:           summary.Margin.Amount,
		MarginRate:       summary.Margin.Rate,
		UncoveredTransit: summary.Coverage.Uncovered,
		Status:           models.ProfitabilityDeficitaire,
		Benchmarks:       make([]models.BenchmarkResult, 0, len(ref.FeeBenchmarks)),
	}
	if result.MarginRate >= ref.MinMarginRate {
		result.Status = models.ProfitabilityBeneficiaire
	}

	for _, b := range ref.FeeBenchmarks {
		amount := summary.Totals.ByType[b.Category]
		var ratio float64
		if revenue > 0 {
			ratio = amount / revenue * 100
		}

		status := models.BenchmarkOK
		switch {
		case ratio > b.Max:
			status = models.BenchmarkAbove
		case ratio < b.Min:
			status = models.BenchmarkBelow
		}

		result.Benchmarks = append(result.Benchmarks, models.BenchmarkResult{
			Category:    b.Category,
			Label:       b.Label,
			Amount:      amount,
			Ratio:       ratio,
			Min:         b.Min,
			Max:         b.Max,
			Target:      b.Target,
			GapToTarget: ratio - b.Target,
			Status:      status,
		})
	}
	return result
}
