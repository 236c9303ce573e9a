// Package risk evaluates reconciliation cases against the financial-risk rule battery.
package risk

import (
	"fmt"
	"math"
	"strings"

	"pilotage-service/internal/classification"
	"pilotage-service/internal/costs"
	"pilotage-service/internal/models"
)

const (
	DefaultCoverageThreshold = 0.6
	DefaultAmountTolerance   = 1.0

	// Coverage under this ratio is a blocker rather than a warning.
	BlockerCoverage = 0.3

	blockerPenalty = 40
	warningPenalty = 15
)

// Options tunes rule thresholds. Non-positive values fall back to the defaults.
type Options struct {
	CoverageThreshold float64
	AmountTolerance   float64
}

// OptionsFromRules takes the coverage threshold of a rule set.
func OptionsFromRules(rules models.RuleSet) Options {
	return Options{CoverageThreshold: rules.CoverageThreshold}
}

func (o Options) withDefaults() Options {
	if o.CoverageThreshold <= 0 {
		o.CoverageThreshold = DefaultCoverageThreshold
	}
	if o.AmountTolerance <= 0 {
		o.AmountTolerance = DefaultAmountTolerance
	}
	return o
}

// EvaluateCase runs every rule against c, in a fixed order, and scores the result.
// A nil ref skips the destination lookup.
func EvaluateCase(c models.Case, ref *models.ReferenceData, opts Options) models.RiskResult {
	opts = opts.withDefaults()
	ev := &evaluation{alerts: []models.Alert{}}

	totals := costs.Totals(c)
	cov := costs.TransitCoverage(c)
	inv := c.Invoice

	if cov.TransitCosts > 0 && cov.Coverage < opts.CoverageThreshold {
		severity := models.SeverityWarning
		if cov.Coverage < BlockerCoverage {
			severity = models.SeverityBlocker
		}
		ev.add(models.AlertTransitLowCoverage, severity, models.Float(cov.Coverage),
			fmt.Sprintf("Couverture transit de %.0f%% (seuil %.0f%%), %.2f non refacturé",
				cov.Coverage*100, opts.CoverageThreshold*100, cov.Uncovered))
	}

	if cov.TransitCosts > 0 && cov.TransitBilled == 0 {
		ev.add(models.AlertTransitNotBilled, models.SeverityBlocker, models.Float(cov.TransitCosts),
			fmt.Sprintf("Frais de transit/douane de %.2f non refacturés au client", cov.TransitCosts))
	}

	if strings.EqualFold(strings.TrimSpace(inv.Incoterm), "DDP") && totals.ByType[models.CostDouane] == 0 {
		ev.add(models.AlertDDPNoCustoms, models.SeverityWarning, nil,
			"Incoterm DDP sans frais de douane rapprochés")
	}

	if inv.TotalHT != nil && inv.TotalTVA != nil && inv.TotalTTC != nil {
		gap := math.Abs(*inv.TotalHT + *inv.TotalTVA - *inv.TotalTTC)
		if gap > opts.AmountTolerance {
			ev.add(models.AlertAmountMismatch, models.SeverityWarning, models.Float(gap),
				fmt.Sprintf("Écart de %.2f entre HT + TVA et TTC", gap))
		}
	}

	if ref != nil && strings.TrimSpace(inv.Destination) != "" && !knownDestination(inv.Destination, ref.Destinations) {
		ev.add(models.AlertDestinationUnknown, models.SeverityInfo, nil,
			fmt.Sprintf("Destination %q absente du référentiel", inv.Destination))
	}

	return models.RiskResult{
		CaseID:    c.ID,
		Alerts:    ev.alerts,
		RiskScore: Score(ev.alerts),
	}
}

// Score is 100 minus 40 per blocker and 15 per warning, floored at zero.
func Score(alerts []models.Alert) int {
	score := 100
	for _, a := range alerts {
		switch a.Severity {
		case models.SeverityBlocker:
			score -= blockerPenalty
		case models.SeverityWarning:
			score -= warningPenalty
		}
	}
	if score < 0 {
		return 0
	}
	return score
}

type evaluation struct {
	alerts []models.Alert
}

// add records an alert. value is nil for rules that carry no measured figure.
func (e *evaluation) add(code string, severity models.Severity, value *float64, message string) {
	e.alerts = append(e.alerts, models.Alert{
		ID:       fmt.Sprintf("%s-%d", code, len(e.alerts)+1),
		Code:     code,
		Severity: severity,
		Value:    value,
		Message:  message,
	})
}

func knownDestination(dest string, known []string) bool {
	want := classification.Normalize(strings.TrimSpace(dest))
	for _, k := range known {
		if classification.Normalize(strings.TrimSpace(k)) == want {
			return true
		}
	}
	return false
}
