// Package portfolio folds reconciliation cases into portfolio-level indicators.
package portfolio

import (
	"sort"
	"strings"

	"pilotage-service/internal/costs"
	"pilotage-service/internal/models"
)

const (
	// UnknownKey labels cases whose grouping field is missing.
	UnknownKey = "Inconnu"

	// TopLossCount is the number of lowest-margin cases reported.
	TopLossCount = 20
)

// ComputeCircuitSummary aggregates margins, coverage and losses over cases.
func ComputeCircuitSummary(cases []models.Case) models.CircuitSummary {
	summary := models.CircuitSummary{
		CaseCount:     len(cases),
		TopLosses:     []models.CaseLoss{},
		ByDestination: map[string]models.Bucket{},
		ByClient:      map[string]models.Bucket{},
		ByIncoterm:    map[string]models.Bucket{},
		ByForwarder:   map[string]models.Bucket{},
	}

	var coverageSum float64
	var exposed int
	losses := make([]models.CaseLoss, 0, len(cases))

	for _, c := range cases {
		s := costs.Summarize(c)
		inv := c.Invoice

		if s.Coverage.TransitCosts > 0 {
			coverageSum += s.Coverage.Coverage
			exposed++
		}
		summary.UncoveredTotal += s.Coverage.Uncovered
		summary.TotalRevenue += inv.HT()
		summary.TotalCosts += s.Totals.Total
		summary.TotalMargin += s.Margin.Amount

		addTo(summary.ByDestination, inv.Destination, s.Margin.Amount)
		addTo(summary.ByClient, inv.ClientName, s.Margin.Amount)
		addTo(summary.ByIncoterm, inv.Incoterm, s.Margin.Amount)
		addTo(summary.ByForwarder, forwarder(c), s.Margin.Amount)

		losses = append(losses, models.CaseLoss{
			CaseID:      c.ID,
			ClientName:  inv.ClientName,
			Destination: inv.Destination,
			Revenue:     inv.HT(),
			Margin:      s.Margin.Amount,
			MarginRate:  s.Margin.Rate,
		})
	}

	switch {
	case exposed > 0:
		summary.CoverageAverage = coverageSum / float64(exposed)
	case len(cases) > 0:
		summary.CoverageAverage = 1
	}

	sort.SliceStable(losses, func(i, j int) bool { return losses[i].Margin < losses[j].Margin })
	if len(losses) > TopLossCount {
		losses = losses[:TopLossCount]
	}
	summary.TopLosses = losses

	return summary
}

// forwarder is the supplier of the first matched cost document.
func forwarder(c models.Case) string {
	if len(c.CostDocs) == 0 {
		return ""
	}
	return c.CostDocs[0].Supplier
}

func addTo(buckets map[string]models.Bucket, key string, margin float64) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = UnknownKey
	}
	b := buckets[key]
	b.Margin += margin
	b.Count++
	buckets[key] = b
}
