package models

import (
	"encoding/json"
	"time"
)

// InvoiceRecord is a stored invoice.
type InvoiceRecord struct {
	ID        int64     `db:"id" json:"id"`
	Invoice   Invoice   `json:"invoice"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// CostDocumentRecord is a stored cost document.
type CostDocumentRecord struct {
	ID        int64        `db:"id" json:"id"`
	Document  CostDocument `json:"document"`
	CreatedAt time.Time    `db:"created_at" json:"-"`
	UpdatedAt time.Time    `db:"updated_at" json:"-"`
}

// ReconciliationRun is one persisted execution of the engine over a date range.
type ReconciliationRun struct {
	ID             int64     `db:"id" json:"id"`
	RunID          string    `db:"run_id" json:"run_id"`
	FromDate       string    `db:"from_date" json:"from_date"`
	ToDate         string    `db:"to_date" json:"to_date"`
	Status         string    `db:"status" json:"status"`
	InvoiceCount   int       `db:"invoice_count" json:"invoice_count"`
	CostDocCount   int       `db:"cost_doc_count" json:"cost_doc_count"`
	MatchedCount   int       `db:"matched_count" json:"matched_count"`
	PartialCount   int       `db:"partial_count" json:"partial_count"`
	UnmatchedCount int       `db:"unmatched_count" json:"unmatched_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CaseRecord is a persisted case with its headline results.
type CaseRecord struct {
	ID          int64           `db:"id" json:"id"`
	RunID       int64           `db:"run_id" json:"run_id"`
	CaseID      string          `db:"case_id" json:"case_id"`
	MatchScore  float64         `db:"match_score" json:"match_score"`
	MatchedBy   MatchMethod     `db:"matched_by" json:"matched_by"`
	MatchStatus MatchStatus     `db:"match_status" json:"match_status"`
	RiskScore   int             `db:"risk_score" json:"risk_score"`
	Margin      float64         `db:"margin" json:"margin"`
	MarginRate  float64         `db:"margin_rate" json:"margin_rate"`
	Payload     json.RawMessage `db:"payload" json:"-"`
	CreatedAt   time.Time       `db:"created_at" json:"-"`
}

// AlertRecord is a persisted risk alert.
type AlertRecord struct {
	ID        int64     `db:"id" json:"id"`
	RunID     int64     `db:"run_id" json:"run_id"`
	CaseID    string    `db:"case_id" json:"case_id"`
	AlertID   string    `db:"alert_id" json:"alert_id"`
	Code      string    `db:"code" json:"code"`
	Severity  Severity  `db:"severity" json:"severity"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// ReconciliationAudit represents an audit trail entry
type ReconciliationAudit struct {
	ID        int64           `db:"id" json:"id"`
	RunID     *int64          `db:"run_id" json:"run_id,omitempty"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	UserID    string          `db:"user_id" json:"user_id"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
}

// Run status constants
const (
	RunStatusCompleted       = "completed"
	RunStatusNeedsAttention  = "needs_attention"
	RunStatusNothingToRecord = "empty"
)

// AuditAction constants
const (
	AuditActionInvoicesImported = "invoices_imported"
	AuditActionCostDocsImported = "cost_documents_imported"
	AuditActionRunCompleted     = "run_completed"
	AuditActionRunExported      = "run_exported"
)
