// Package classification assigns cost categories to free-text invoice and cost lines.
package classification

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pilotage-service/internal/models"
)

// Normalize lower-cases s and strips its diacritics ("Dédouanement" -> "dedouanement").
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Classify returns the cost type of the first rule in rules that matches the
// text or the account. ok is false when no rule matches; callers then fall
// back to models.CostAutre.
func Classify(text, account string, rules models.RuleSet, target models.RuleTarget) (models.CostType, bool) {
	normalized := Normalize(text)
	account = strings.TrimSpace(account)

	for _, rule := range rules.KeywordRules {
		if !rule.Applies(target) {
			continue
		}
		if matchesAccount(account, rule.AccountStartsWith) || matchesKeyword(normalized, rule.Keywords) {
			return rule.CostType, true
		}
	}
	return "", false
}

func matchesAccount(account string, prefixes []string) bool {
	if account == "" {
		return false
	}
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(account, p) {
			return true
		}
	}
	return false
}

func matchesKeyword(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		kw = Normalize(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ClassifyInvoices returns copies of invoices whose lines all carry a cost type.
// A line that already has one keeps it.
func ClassifyInvoices(invoices []models.Invoice, rules models.RuleSet) []models.Invoice {
	out := make([]models.Invoice, len(invoices))
	for i, inv := range invoices {
		out[i] = inv
		if inv.Lines == nil {
			continue
		}
		lines := make([]models.InvoiceLine, len(inv.Lines))
		for j, line := range inv.Lines {
			if line.CostType == "" {
				line.CostType = orAutre(Classify(line.Description, line.Account, rules, models.TargetInvoice))
			}
			lines[j] = line
		}
		out[i].Lines = lines
	}
	return out
}

// ClassifyCostDocuments returns copies of docs with every line classified.
// Lines typed manually keep their type unless it is missing or autre.
func ClassifyCostDocuments(docs []models.CostDocument, rules models.RuleSet) []models.CostDocument {
	out := make([]models.CostDocument, len(docs))
	for i, doc := range docs {
		out[i] = doc
		if doc.Lines == nil {
			continue
		}
		lines := make([]models.CostLine, len(doc.Lines))
		for j, line := range doc.Lines {
			if line.Type == "" || line.Type == models.CostAutre {
				line.Type = orAutre(Classify(line.Label, "", rules, models.TargetCost))
			}
			lines[j] = line
		}
		out[i].Lines = lines
	}
	return out
}

func orAutre(t models.CostType, ok bool) models.CostType {
	if !ok {
		return models.CostAutre
	}
	return t
}
