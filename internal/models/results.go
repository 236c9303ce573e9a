package models

// Severity of a risk alert.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Alert codes raised by the risk engine.
const (
	AlertTransitLowCoverage = "TRANSIT_LOW_COVERAGE"
	AlertTransitNotBilled   = "TRANSIT_NOT_BILLED"
	AlertDDPNoCustoms       = "DDP_NO_CUSTOMS"
	AlertAmountMismatch     = "AMOUNT_MISMATCH"
	AlertDestinationUnknown = "DESTINATION_UNKNOWN"
)

// Alert is a single risk finding on a case.
type Alert struct {
	ID       string   `json:"id"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Value    *float64 `json:"value,omitempty"`
}

// RiskResult is the outcome of evaluating one case.
type RiskResult struct {
	CaseID    string  `json:"case_id"`
	Alerts    []Alert `json:"alerts"`
	RiskScore int     `json:"risk_score"`
}

// ReferenceData holds lookup tables used by the risk engine.
type ReferenceData struct {
	Destinations []string `json:"destinations" mapstructure:"destinations"`
}

// FeeBenchmark is the expected share of revenue for one cost category, in percent.
type FeeBenchmark struct {
	Category CostType `json:"category" mapstructure:"category"`
	Label    string   `json:"label" mapstructure:"label"`
	Min      float64  `json:"min" mapstructure:"min"`
	Max      float64  `json:"max" mapstructure:"max"`
	Target   float64  `json:"target" mapstructure:"target"`
}

// ProfitabilityReference is the benchmark table for profitability evaluation.
type ProfitabilityReference struct {
	MinMarginRate float64        `json:"min_margin_rate" mapstructure:"min_margin_rate"`
	FeeBenchmarks []FeeBenchmark `json:"fee_benchmarks" mapstructure:"fee_benchmarks"`
}

// BenchmarkStatus compares a cost ratio with its benchmark band.
type BenchmarkStatus string

const (
	BenchmarkAbove BenchmarkStatus = "au_dessus"
	BenchmarkBelow BenchmarkStatus = "sous_reference"
	BenchmarkOK    BenchmarkStatus = "ok"
)

// ProfitabilityStatus is the overall verdict on a case.
type ProfitabilityStatus string

const (
	ProfitabilityBeneficiaire ProfitabilityStatus = "beneficiaire"
	ProfitabilityDeficitaire  ProfitabilityStatus = "deficitaire"
)

// BenchmarkResult is one fee benchmark evaluated against a case.
type BenchmarkResult struct {
	Category    CostType        `json:"category"`
	Label       string          `json:"label"`
	Amount      float64         `json:"amount"`
	Ratio       float64         `json:"ratio"`
	Min         float64         `json:"min"`
	Max         float64         `json:"max"`
	Target      float64         `json:"target"`
	GapToTarget float64         `json:"gap_to_target"`
	Status      BenchmarkStatus `json:"status"`
}

// ProfitabilityResult is the profitability evaluation of one case.
type ProfitabilityResult struct {
	CaseID           string              `json:"case_id"`
	Revenue          float64             `json:"revenue"`
	TotalCosts       float64             `json:"total_costs"`
	Margin           float64             `json:"margin"`
	MarginRate       float64             `json:"margin_rate"`
	UncoveredTransit float64             `json:"uncovered_transit"`
	Status           ProfitabilityStatus `json:"status"`
	Benchmarks       []BenchmarkResult   `json:"benchmarks"`
}

// Bucket accumulates margin over a group of cases.
type Bucket struct {
	Margin float64 `json:"margin"`
	Count  int     `json:"count"`
}

// CaseLoss is a case ranked by its margin in the portfolio summary.
type CaseLoss struct {
	CaseID      string  `json:"case_id"`
	ClientName  string  `json:"client_name"`
	Destination string  `json:"destination"`
	Revenue     float64 `json:"revenue"`
	Margin      float64 `json:"margin"`
	MarginRate  float64 `json:"margin_rate"`
}

// CircuitSummary is the portfolio-level fold of a set of cases.
type CircuitSummary struct {
	CaseCount       int               `json:"case_count"`
	CoverageAverage float64           `json:"coverage_average"`
	UncoveredTotal  float64           `json:"uncovered_total"`
	TotalRevenue    float64           `json:"total_revenue"`
	TotalCosts      float64           `json:"total_costs"`
	TotalMargin     float64           `json:"total_margin"`
	TopLosses       []CaseLoss        `json:"top_losses"`
	ByDestination   map[string]Bucket `json:"by_destination"`
	ByClient        map[string]Bucket `json:"by_client"`
	ByIncoterm      map[string]Bucket `json:"by_incoterm"`
	ByForwarder     map[string]Bucket `json:"by_forwarder"`
}
