// Package costs aggregates the matched cost documents of a case.
package costs

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"pilotage-service/internal/models"
)

// CostTotals holds the per-category cost of a case.
type CostTotals struct {
	Total  float64                     `json:"total"`
	ByType map[models.CostType]float64 `json:"by_type"`
}

// Coverage describes how much of the transit, customs and file-fee costs
// were billed back to the client.
type Coverage struct {
	TransitCosts  float64 `json:"transit_costs"`
	TransitBilled float64 `json:"transit_billed"`
	Coverage      float64 `json:"coverage"`
	Uncovered     float64 `json:"uncovered"`
}

// MarginResult is the gross margin of a case.
type MarginResult struct {
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate"`
}

// Totals sums every line of every matched cost document by cost type.
// Every known type is present in ByType and Total is the sum of ByType.
func Totals(c models.Case) CostTotals {
	sums := make(map[models.CostType]decimal.Decimal, len(models.CostTypes))
	for _, doc := range c.CostDocs {
		for _, line := range doc.Lines {
			t := line.Type
			if !t.Valid() {
				t = models.CostAutre
			}
			sums[t] = sums[t].Add(decimal.NewFromFloat(line.Amount))
		}
	}

	totals := CostTotals{ByType: make(map[models.CostType]float64, len(models.CostTypes))}
	for _, t := range models.CostTypes {
		v := sums[t].InexactFloat64()
		totals.ByType[t] = v
		totals.Total += v
	}
	return totals
}

// TransitCoverage compares transit-related costs with what the invoice billed as transit.
func TransitCoverage(c models.Case) Coverage {
	byType := Totals(c).ByType
	cov := Coverage{
		TransitCosts: byType[models.CostTransit] + byType[models.CostDouane] + byType[models.CostFraisDossier],
	}

	for _, line := range c.Invoice.Lines {
		if strings.EqualFold(string(line.CostType), string(models.CostTransit)) {
			cov.TransitBilled += line.TotalHT
		}
	}

	cov.Coverage = 1
	if cov.TransitCosts > 0 {
		cov.Coverage = cov.TransitBilled / cov.TransitCosts
	}
	cov.Uncovered = math.Max(0, cov.TransitCosts-cov.TransitBilled)
	return cov
}

// Margin returns the invoice pre-tax total minus the case costs.
func Margin(c models.Case) MarginResult {
	return marginFor(c.Invoice.HT(), Totals(c).Total)
}

func marginFor(revenue, total float64) MarginResult {
	m := MarginResult{Amount: revenue - total}
	if revenue > 0 {
		m.Rate = m.Amount / revenue * 100
	}
	return m
}

// Summary bundles the three aggregates, computing the totals once.
type Summary struct {
	Totals   CostTotals   `json:"totals"`
	Coverage Coverage     `json:"coverage"`
	Margin   MarginResult `json:"margin"`
}

// Summarize returns Totals, TransitCoverage and Margin for c.
func Summarize(c models.Case) Summary {
	totals := Totals(c)
	return Summary{
		Totals:   totals,
		Coverage: TransitCoverage(c),
		Margin:   marginFor(c.Invoice.HT(), totals.Total),
	}
}
