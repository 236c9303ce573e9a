package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotage-service/internal/models"
)

func testRules() models.RuleSet {
	return models.RuleSet{
		CoverageThreshold: 0.6,
		KeywordRules: []models.KeywordRule{
			{ID: "douane", Keywords: []string{"Dédouanement", "droits de douane"}, CostType: models.CostDouane, AppliesTo: models.TargetAny, AccountStartsWith: []string{"6354"}},
			{ID: "transit", Keywords: []string{"transit"}, CostType: models.CostTransit, AppliesTo: models.TargetAny, AccountStartsWith: []string{"7086"}},
			{ID: "transport-cost", Keywords: []string{"fret", "transport"}, CostType: models.CostTransport, AppliesTo: models.TargetCost},
			{ID: "transport-invoice", Keywords: []string{"transport"}, CostType: models.CostAssurance, AppliesTo: models.TargetInvoice},
		},
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "dedouanement export", Normalize("Dédouanement EXPORT"))
	assert.Equal(t, "frais a l'echeance", Normalize("Frais à l'échéance"))
	assert.Equal(t, "", Normalize(""))
}

func TestClassify(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name    string
		text    string
		account string
		target  models.RuleTarget
		want    models.CostType
		wantOK  bool
	}{
		{name: "keyword with diacritics", text: "DEDOUANEMENT import", target: models.TargetCost, want: models.CostDouane, wantOK: true},
		{name: "accented text matches plain keyword", text: "Frais de transit aérien", target: models.TargetCost, want: models.CostTransit, wantOK: true},
		{name: "account prefix wins without keyword", text: "prestation", account: "708600", target: models.TargetInvoice, want: models.CostTransit, wantOK: true},
		{name: "first rule wins over later keyword", text: "transport", account: "635400", target: models.TargetCost, want: models.CostDouane, wantOK: true},
		{name: "applies_to filters rules", text: "transport routier", target: models.TargetInvoice, want: models.CostAssurance, wantOK: true},
		{name: "applies_to cost", text: "transport routier", target: models.TargetCost, want: models.CostTransport, wantOK: true},
		{name: "no match", text: "emballage", target: models.TargetCost, wantOK: false},
		{name: "empty text and account", target: models.TargetCost, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.text, tt.account, rules, tt.target)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_EmptyRulesNeverMatch(t *testing.T) {
	rules := models.RuleSet{KeywordRules: []models.KeywordRule{
		{ID: "empty", CostType: models.CostTransport, AppliesTo: models.TargetAny},
		{ID: "blank", Keywords: []string{"", "  "}, AccountStartsWith: []string{""}, CostType: models.CostTransport},
	}}
	_, ok := Classify("anything", "401000", rules, models.TargetCost)
	assert.False(t, ok)
}

func TestClassifyInvoices_KeepsExistingType(t *testing.T) {
	invoices := []models.Invoice{{
		InvoiceNumber: "INV-1",
		Lines: []models.InvoiceLine{
			{Description: "Frais de transit", TotalHT: 100},
			{Description: "Frais de transit", TotalHT: 50, CostType: models.CostTransport},
			{Description: "Marchandise", TotalHT: 800},
		},
	}}

	out := ClassifyInvoices(invoices, testRules())
	require.Len(t, out, 1)
	assert.Equal(t, models.CostTransit, out[0].Lines[0].CostType)
	assert.Equal(t, models.CostTransport, out[0].Lines[1].CostType)
	assert.Equal(t, models.CostAutre, out[0].Lines[2].CostType)

	// inputs are untouched
	assert.Equal(t, models.CostType(""), invoices[0].Lines[0].CostType)
}

func TestClassifyCostDocuments_UpgradesAutreOnly(t *testing.T) {
	docs := []models.CostDocument{{
		DocNumber: "F-1",
		Lines: []models.CostLine{
			{Label: "Fret maritime", Amount: 300},
			{Label: "Fret maritime", Amount: 20, Type: models.CostAutre},
			{Label: "Fret maritime", Amount: 10, Type: models.CostAssurance},
			{Label: "Divers", Amount: 5},
		},
	}}

	out := ClassifyCostDocuments(docs, testRules())
	lines := out[0].Lines
	assert.Equal(t, models.CostTransport, lines[0].Type)
	assert.Equal(t, models.CostTransport, lines[1].Type)
	assert.Equal(t, models.CostAssurance, lines[2].Type)
	assert.Equal(t, models.CostAutre, lines[3].Type)

	assert.Equal(t, models.CostType(""), docs[0].Lines[0].Type)
	assert.Equal(t, models.CostAutre, docs[0].Lines[1].Type)
}
