package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotage-service/internal/classification"
	"pilotage-service/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_Classifies(t *testing.T) {
	rs := Default()
	assert.Equal(t, DefaultCoverageThreshold, rs.CoverageThreshold)

	tests := []struct {
		text    string
		account string
		want    models.CostType
	}{
		{"Fret maritime Le Havre - Dakar", "", models.CostTransport},
		{"DEDOUANEMENT import", "", models.CostDouane},
		{"Frais de dossier", "", models.CostFraisDossier},
		{"Commission de transit", "", models.CostTransit},
		{"Prime d'assurance ad valorem", "", models.CostAssurance},
		{"Ligne sans libellé connu", "6242000", models.CostTransport},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := classification.Classify(tt.text, tt.account, rs, models.TargetCost)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := classification.Classify("Marchandise", "701000", rs, models.TargetInvoice)
	assert.False(t, ok)
}

func TestDefault_ReturnsFreshValue(t *testing.T) {
	a := Default()
	a.KeywordRules[0].Keywords[0] = "changed"
	assert.NotEqual(t, "changed", Default().KeywordRules[0].Keywords[0])
}

func TestLoadRuleSet(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		rs, err := LoadRuleSet("")
		require.NoError(t, err)
		assert.Equal(t, Default(), rs)
	})

	t.Run("yaml file", func(t *testing.T) {
		path := writeFile(t, "rules.yaml", `
coverage_threshold: 0.75
keyword_rules:
  - id: fuel
    keywords: ["surcharge carburant", "BAF"]
    cost_type: transport
    applies_to: cost
  - id: bank
    keywords: ["frais bancaires"]
    cost_type: autre
    account_starts_with: ["627"]
`)
		rs, err := LoadRuleSet(path)
		require.NoError(t, err)
		assert.Equal(t, 0.75, rs.CoverageThreshold)
		require.Len(t, rs.KeywordRules, 2)
		assert.Equal(t, "fuel", rs.KeywordRules[0].ID)
		assert.Equal(t, []string{"surcharge carburant", "BAF"}, rs.KeywordRules[0].Keywords)
		assert.Equal(t, models.CostTransport, rs.KeywordRules[0].CostType)
		assert.Equal(t, models.TargetCost, rs.KeywordRules[0].AppliesTo)
		assert.Equal(t, models.TargetAny, rs.KeywordRules[1].AppliesTo)
		assert.Equal(t, []string{"627"}, rs.KeywordRules[1].AccountStartsWith)
	})

	t.Run("missing threshold uses default", func(t *testing.T) {
		path := writeFile(t, "rules.yaml", "keyword_rules: []\n")
		rs, err := LoadRuleSet(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultCoverageThreshold, rs.CoverageThreshold)
	})

	t.Run("unknown cost type", func(t *testing.T) {
		path := writeFile(t, "rules.yaml", `
keyword_rules:
  - id: bad
    keywords: ["x"]
    cost_type: carburant
`)
		_, err := LoadRuleSet(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRuleSet(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadReference(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		ref, err := LoadReference("")
		require.NoError(t, err)
		assert.Equal(t, DefaultReference(), ref)
		assert.Equal(t, ref.Destinations, ref.Data().Destinations)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeFile(t, "reference.yaml", `
destinations:
  - Sénégal
  - Mali
`)
		ref, err := LoadReference(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Sénégal", "Mali"}, ref.Destinations)
		assert.Equal(t, DefaultReference().Profitability, ref.Profitability)
	})

	t.Run("profitability section", func(t *testing.T) {
		path := writeFile(t, "reference.yaml", `
profitability:
  min_margin_rate: 12.5
  fee_benchmarks:
    - category: transport
      label: Transport
      min: 4
      max: 12
      target: 8
`)
		ref, err := LoadReference(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultDestinations(), ref.Destinations)
		assert.Equal(t, 12.5, ref.Profitability.MinMarginRate)
		require.Len(t, ref.Profitability.FeeBenchmarks, 1)
		assert.Equal(t, models.FeeBenchmark{Category: models.CostTransport, Label: "Transport", Min: 4, Max: 12, Target: 8},
			ref.Profitability.FeeBenchmarks[0])
	})
}
