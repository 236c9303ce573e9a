// Package report assembles per-case results and the portfolio summary into
// a single document.
package report

import (
	"pilotage-service/internal/costs"
	"pilotage-service/internal/models"
	"pilotage-service/internal/portfolio"
	"pilotage-service/internal/profitability"
	"pilotage-service/internal/risk"
)

// Inputs carries the reference tables used to evaluate cases.
type Inputs struct {
	Reference     *models.ReferenceData
	Profitability models.ProfitabilityReference
	Risk          risk.Options
}

// CaseReport is a case with every result computed on it.
type CaseReport struct {
	Case          models.Case                `json:"case"`
	Totals        costs.CostTotals           `json:"totals"`
	Coverage      costs.Coverage             `json:"coverage"`
	Margin        costs.MarginResult         `json:"margin"`
	Risk          models.RiskResult          `json:"risk"`
	Profitability models.ProfitabilityResult `json:"profitability"`
}

// Report is the full outcome of a reconciliation.
type Report struct {
	Cases        []CaseReport               `json:"cases"`
	Summary      models.CircuitSummary      `json:"summary"`
	AlertCounts  map[models.Severity]int    `json:"alert_counts"`
	StatusCounts map[models.MatchStatus]int `json:"status_counts"`
}

// Build evaluates every case and folds them into a Report. Case order is kept.
func Build(cases []models.Case, in Inputs) Report {
	rep := Report{
		Cases: make([]CaseReport, 0, len(cases)),
		AlertCounts: map[models.Severity]int{
			models.SeverityBlocker: 0,
			models.SeverityWarning: 0,
			models.SeverityInfo:    0,
		},
		StatusCounts: map[models.MatchStatus]int{
			models.MatchStatusMatch:   0,
			models.MatchStatusPartial: 0,
			models.MatchStatusNone:    0,
		},
	}

	for _, c := range cases {
		s := costs.Summarize(c)
		riskResult := risk.EvaluateCase(c, in.Reference, in.Risk)
		for _, a := range riskResult.Alerts {
			rep.AlertCounts[a.Severity]++
		}
		rep.StatusCounts[c.MatchStatus]++

		rep.Cases = append(rep.Cases, CaseReport{
			Case:          c,
			Totals:        s.Totals,
			Coverage:      s.Coverage,
			Margin:        s.Margin,
			Risk:          riskResult,
			Profitability: profitability.EvaluateInvoiceProfitability(c, in.Profitability),
		})
	}

	rep.Summary = portfolio.ComputeCircuitSummary(cases)
	return rep
}
