package matching

import (
	"math"
	"strings"

	"pilotage-service/internal/models"
)

const (
	// Match confidence scores
	InvoiceNumberConfidence = 95.0
	ShipmentRefConfidence   = 75.0
	FallbackMaxConfidence   = 90.0
	FallbackMinConfidence   = 40.0

	// Status thresholds
	MatchThreshold   = 80.0
	PartialThreshold = 40.0

	// Amount difference tolerance (in percentage of the invoice total)
	AmountTolerancePercent = 30.0

	// Date difference tolerance (in days)
	DateToleranceDays = 10
)

// Options tunes the matching cascade.
type Options struct {
	// NormalizeRefs trims and case-folds invoice numbers and shipment
	// references before comparing them.
	NormalizeRefs bool
}

type MatchResult struct {
	Docs   []models.CostDocument
	Method models.MatchMethod
}

type MatchEngine struct {
	costDocs  []models.CostDocument
	docTotals []float64
	opts      Options
}

// NewMatchEngine indexes the cost document pool. The pool is only read.
func NewMatchEngine(costDocs []models.CostDocument, opts Options) *MatchEngine {
	totals := make([]float64, len(costDocs))
	for i, d := range costDocs {
		totals[i] = d.Total()
	}
	return &MatchEngine{
		costDocs:  costDocs,
		docTotals: totals,
		opts:      opts,
	}
}

// Match runs the cascade for one invoice. The first tier that selects at
// least one document wins.
func (m *MatchEngine) Match(inv models.Invoice) MatchResult {
	if docs := m.byInvoiceNumber(inv); len(docs) > 0 {
		return MatchResult{Docs: docs, Method: models.MatchByInvoiceNumber}
	}
	if docs := m.byShipmentRef(inv); len(docs) > 0 {
		return MatchResult{Docs: docs, Method: models.MatchByShipmentRef}
	}
	if docs := m.byDateAndAmount(inv); len(docs) > 0 {
		return MatchResult{Docs: docs, Method: models.MatchByClientDateAmount}
	}
	return MatchResult{Docs: []models.CostDocument{}, Method: models.MatchByNone}
}

func (m *MatchEngine) byInvoiceNumber(inv models.Invoice) []models.CostDocument {
	var docs []models.CostDocument
	for _, d := range m.costDocs {
		if m.sameRef(inv.InvoiceNumber, d.InvoiceNumber) {
			docs = append(docs, d)
		}
	}
	return docs
}

func (m *MatchEngine) byShipmentRef(inv models.Invoice) []models.CostDocument {
	var docs []models.CostDocument
	for _, d := range m.costDocs {
		if m.sameRef(inv.ShipmentRef, d.ShipmentRef) ||
			m.sameRef(inv.AWB, d.AWB) ||
			m.sameRef(inv.BL, d.BL) {
			docs = append(docs, d)
		}
	}
	return docs
}

func (m *MatchEngine) byDateAndAmount(inv models.Invoice) []models.CostDocument {
	invDate, ok := models.ParseDate(inv.InvoiceDate)
	if !ok {
		return nil
	}

	var docs []models.CostDocument
	for i, d := range m.costDocs {
		docDate, ok := models.ParseDate(d.DocDate)
		if !ok {
			continue
		}
		dateDiff := math.Abs(invDate.Sub(docDate).Hours() / 24)
		if dateDiff > DateToleranceDays {
			continue
		}
		if amountGapPercent(inv.HT(), m.docTotals[i]) > AmountTolerancePercent {
			continue
		}
		docs = append(docs, d)
	}
	return docs
}

// sameRef compares two references. A blank reference never matches, in either mode.
func (m *MatchEngine) sameRef(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	if m.opts.NormalizeRefs {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return a == b
}

// amountGapPercent is |amount - reference| as a percentage of |reference|.
// Against a zero reference any difference is a full gap.
func amountGapPercent(reference, amount float64) float64 {
	diff := math.Abs(amount - reference)
	if reference == 0 {
		if diff == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return diff / math.Abs(reference) * 100
}

// ComputeScore returns the 0..100 confidence of a match.
func ComputeScore(method models.MatchMethod, inv models.Invoice, docs []models.CostDocument) float64 {
	if method == models.MatchByNone || len(docs) == 0 {
		return 0
	}

	switch method {
	case models.MatchByInvoiceNumber:
		return InvoiceNumberConfidence
	case models.MatchByShipmentRef:
		return ShipmentRefConfidence
	case models.MatchByClientDateAmount:
		var sum float64
		for _, d := range docs {
			sum += d.Total()
		}
		gap := amountGapPercent(inv.HT(), sum/float64(len(docs)))
		return math.Max(FallbackMinConfidence, FallbackMaxConfidence-gap)
	}
	return 0
}

// StatusFromScore maps a confidence score to a match status.
func StatusFromScore(score float64) models.MatchStatus {
	switch {
	case score >= MatchThreshold:
		return models.MatchStatusMatch
	case score >= PartialThreshold:
		return models.MatchStatusPartial
	default:
		return models.MatchStatusNone
	}
}

// MissingFields lists the header fields absent from inv. A zero total is present.
func MissingFields(inv models.Invoice) []string {
	missing := []string{}
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		missing = append(missing, "invoiceNumber")
	}
	if inv.TotalHT == nil {
		missing = append(missing, "totalHT")
	}
	if strings.TrimSpace(inv.InvoiceDate) == "" {
		missing = append(missing, "invoiceDate")
	}
	if inv.TotalTVA == nil {
		missing = append(missing, "totalTVA")
	}
	if inv.TotalTTC == nil {
		missing = append(missing, "totalTTC")
	}
	return missing
}
