// Package rules provides the default classification rule set and loads rule
// sets and reference tables from YAML files.
package rules

import (
	"fmt"

	"github.com/spf13/viper"

	"pilotage-service/internal/models"
	"pilotage-service/internal/profitability"
)

// DefaultCoverageThreshold is the transit coverage below which the risk engine alerts.
const DefaultCoverageThreshold = 0.6

// Default returns the built-in keyword rules. Keywords are matched after
// diacritic folding, so accented and unaccented spellings are equivalent.
func Default() models.RuleSet {
	return models.RuleSet{
		CoverageThreshold: DefaultCoverageThreshold,
		KeywordRules: []models.KeywordRule{
			{
				ID:        "frais-dossier",
				Keywords:  []string{"frais de dossier", "frais dossier", "ouverture de dossier", "frais administratifs", "handling fee"},
				CostType:  models.CostFraisDossier,
				AppliesTo: models.TargetAny,
			},
			{
				ID:                "douane",
				Keywords:          []string{"douane", "dédouanement", "droits de douane", "droits et taxes", "customs", "octroi de mer"},
				CostType:          models.CostDouane,
				AppliesTo:         models.TargetAny,
				AccountStartsWith: []string{"6353"},
			},
			{
				ID:        "transit",
				Keywords:  []string{"transit", "commission", "manutention", "magasinage", "passage portuaire"},
				CostType:  models.CostTransit,
				AppliesTo: models.TargetAny,
			},
			{
				ID:                "assurance",
				Keywords:          []string{"assurance", "ad valorem", "insurance"},
				CostType:          models.CostAssurance,
				AppliesTo:         models.TargetAny,
				AccountStartsWith: []string{"616"},
			},
			{
				ID:                "transport",
				Keywords:          []string{"fret", "transport", "freight", "affrètement", "acheminement", "livraison", "camionnage"},
				CostType:          models.CostTransport,
				AppliesTo:         models.TargetAny,
				AccountStartsWith: []string{"6241", "6242"},
			},
		},
	}
}

// DefaultDestinations lists the destinations known to the risk engine out of the box.
func DefaultDestinations() []string {
	return []string{
		"France", "Belgique", "Suisse", "Luxembourg", "Allemagne", "Espagne", "Italie",
		"Maroc", "Algérie", "Tunisie", "Sénégal", "Côte d'Ivoire", "Mali", "Burkina Faso",
		"Guinée", "Bénin", "Togo", "Niger", "Cameroun", "Gabon", "Congo", "Madagascar",
		"Canada", "États-Unis", "Royaume-Uni",
	}
}

// Reference bundles the lookup tables read from a reference file.
type Reference struct {
	Destinations  []string                      `json:"destinations" mapstructure:"destinations"`
	Profitability models.ProfitabilityReference `json:"profitability" mapstructure:"profitability"`
}

// Data returns the part of the reference consumed by the risk engine.
func (r Reference) Data() *models.ReferenceData {
	return &models.ReferenceData{Destinations: r.Destinations}
}

// DefaultReference is the reference used when no file is configured.
func DefaultReference() Reference {
	return Reference{
		Destinations:  DefaultDestinations(),
		Profitability: profitability.DefaultReference(),
	}
}

// LoadRuleSet reads a rule set from path. An empty path yields Default().
// A file without coverage_threshold gets DefaultCoverageThreshold.
func LoadRuleSet(path string) (models.RuleSet, error) {
	if path == "" {
		return Default(), nil
	}

	v, err := readFile(path)
	if err != nil {
		return models.RuleSet{}, err
	}
	v.SetDefault("coverage_threshold", DefaultCoverageThreshold)

	var rs models.RuleSet
	if err := v.Unmarshal(&rs); err != nil {
		return models.RuleSet{}, fmt.Errorf("failed to decode rule set %s: %w", path, err)
	}

	for i, rule := range rs.KeywordRules {
		if !rule.CostType.Valid() {
			return models.RuleSet{}, fmt.Errorf("%w: rule %d (%s) has unknown cost type %q", models.ErrInvalidInput, i, rule.ID, rule.CostType)
		}
		switch rule.AppliesTo {
		case models.TargetInvoice, models.TargetCost, models.TargetAny:
		case "":
			rs.KeywordRules[i].AppliesTo = models.TargetAny
		default:
			return models.RuleSet{}, fmt.Errorf("%w: rule %d (%s) has unknown target %q", models.ErrInvalidInput, i, rule.ID, rule.AppliesTo)
		}
	}
	return rs, nil
}

// LoadReference reads destinations and fee benchmarks from path. An empty
// path yields DefaultReference(); a section missing from the file keeps its default.
func LoadReference(path string) (Reference, error) {
	ref := DefaultReference()
	if path == "" {
		return ref, nil
	}

	v, err := readFile(path)
	if err != nil {
		return Reference{}, err
	}

	var loaded Reference
	if err := v.Unmarshal(&loaded); err != nil {
		return Reference{}, fmt.Errorf("failed to decode reference %s: %w", path, err)
	}
	if v.IsSet("destinations") {
		ref.Destinations = loaded.Destinations
	}
	if v.IsSet("profitability") {
		ref.Profitability = loaded.Profitability
	}
	return ref, nil
}

func readFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v, nil
}
