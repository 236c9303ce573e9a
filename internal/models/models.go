package models

import (
	"strings"
	"time"
)

// CostType is the closed taxonomy every cost and invoice line resolves to.
type CostType string

const (
	CostTransport    CostType = "transport"
	CostDouane       CostType = "douane"
	CostTransit      CostType = "transit"
	CostFraisDossier CostType = "frais_dossier"
	CostAssurance    CostType = "assurance"
	CostAutre        CostType = "autre"
)

// CostTypes lists every CostType in reporting order.
var CostTypes = []CostType{
	CostTransport,
	CostDouane,
	CostTransit,
	CostFraisDossier,
	CostAssurance,
	CostAutre,
}

// Valid reports whether t is one of the known cost types.
func (t CostType) Valid() bool {
	for _, known := range CostTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseCostType resolves a free-form label to a CostType, case-insensitively.
// Unknown or empty values resolve to CostAutre.
func ParseCostType(s string) CostType {
	t := CostType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t
	}
	return CostAutre
}

// CostLine is a single amount on a cost document.
type CostLine struct {
	Label     string   `json:"label"`
	Amount    float64  `json:"amount"`
	Currency  string   `json:"currency,omitempty"`
	Type      CostType `json:"type,omitempty"`
	Reference string   `json:"reference,omitempty"`
}

// CostDocument is an imported supplier document (forwarder, customs broker, carrier...).
type CostDocument struct {
	DocNumber     string     `json:"doc_number"`
	DocDate       string     `json:"doc_date"`
	Currency      string     `json:"currency,omitempty"`
	Supplier      string     `json:"supplier,omitempty"`
	FlowCode      string     `json:"flow_code,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	ShipmentRef   string     `json:"shipment_ref,omitempty"`
	AWB           string     `json:"awb,omitempty"`
	BL            string     `json:"bl,omitempty"`
	Lines         []CostLine `json:"lines"`
}

// Total returns the sum of the document's line amounts.
func (d CostDocument) Total() float64 {
	var total float64
	for _, l := range d.Lines {
		total += l.Amount
	}
	return total
}

// InvoiceLine is a sales invoice line.
type InvoiceLine struct {
	Description string   `json:"description"`
	Account     string   `json:"account,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	TotalHT     float64  `json:"total_ht"`
	TotalTVA    *float64 `json:"total_tva,omitempty"`
	TotalTTC    *float64 `json:"total_ttc,omitempty"`
	CostType    CostType `json:"cost_type,omitempty"`
}

// Invoice is an imported sales invoice. Each invoice anchors exactly one Case.
type Invoice struct {
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	ClientName    string        `json:"client_name"`
	InvoiceDate   string        `json:"invoice_date,omitempty"`
	Currency      string        `json:"currency"`
	TotalHT       *float64      `json:"total_ht,omitempty"`
	TotalTVA      *float64      `json:"total_tva,omitempty"`
	TotalTTC      *float64      `json:"total_ttc,omitempty"`
	ShipmentRef   string        `json:"shipment_ref,omitempty"`
	AWB           string        `json:"awb,omitempty"`
	BL            string        `json:"bl,omitempty"`
	Incoterm      string        `json:"incoterm,omitempty"`
	Destination   string        `json:"destination,omitempty"`
	FlowCode      string        `json:"flow_code,omitempty"`
	Lines         []InvoiceLine `json:"lines,omitempty"`
}

// HT returns the pre-tax total, zero when absent.
func (i Invoice) HT() float64 {
	if i.TotalHT == nil {
		return 0
	}
	return *i.TotalHT
}

// Float returns a pointer to v. Handy for optional amounts.
func Float(v float64) *float64 {
	return &v
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

// ParseDate parses the date formats produced by the import collaborators.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MatchMethod names the cascade tier that produced a match.
type MatchMethod string

const (
	MatchByInvoiceNumber    MatchMethod = "invoiceNumber"
	MatchByShipmentRef      MatchMethod = "shipmentRef"
	MatchByClientDateAmount MatchMethod = "client_date_amount"
	MatchByNone             MatchMethod = "none"
)

// MatchStatus is derived from a case's match score.
type MatchStatus string

const (
	MatchStatusMatch   MatchStatus = "match"
	MatchStatusPartial MatchStatus = "partial"
	MatchStatusNone    MatchStatus = "none"
)

// Case pairs one invoice with the cost documents of the same shipment.
type Case struct {
	ID            string         `json:"id"`
	Invoice       Invoice        `json:"invoice"`
	CostDocs      []CostDocument `json:"cost_docs"`
	MatchScore    float64        `json:"match_score"`
	MatchedBy     MatchMethod    `json:"matched_by"`
	MissingFields []string       `json:"missing_fields"`
	MatchStatus   MatchStatus    `json:"match_status"`
}

// RuleTarget restricts a keyword rule to invoice lines, cost lines, or both.
type RuleTarget string

const (
	TargetInvoice RuleTarget = "invoice"
	TargetCost    RuleTarget = "cost"
	TargetAny     RuleTarget = "any"
)

// KeywordRule maps keywords or account prefixes to a CostType.
type KeywordRule struct {
	ID                string     `json:"id" mapstructure:"id"`
	Keywords          []string   `json:"keywords" mapstructure:"keywords"`
	CostType          CostType   `json:"cost_type" mapstructure:"cost_type"`
	AppliesTo         RuleTarget `json:"applies_to" mapstructure:"applies_to"`
	AccountStartsWith []string   `json:"account_starts_with,omitempty" mapstructure:"account_starts_with"`
}

// Applies reports whether the rule is eligible for the given target.
func (r KeywordRule) Applies(target RuleTarget) bool {
	switch r.AppliesTo {
	case TargetAny, "":
		return true
	default:
		return r.AppliesTo == target
	}
}

// RuleSet is the ordered rule configuration of a reconciliation run.
type RuleSet struct {
	CoverageThreshold float64       `json:"coverage_threshold" mapstructure:"coverage_threshold"`
	KeywordRules      []KeywordRule `json:"keyword_rules" mapstructure:"keyword_rules"`
}
