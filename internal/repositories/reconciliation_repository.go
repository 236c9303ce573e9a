package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pilotage-service/internal/models"
)

type ReconciliationRepository interface {
	CreateRun(ctx context.Context, tx *sql.Tx, run *models.ReconciliationRun) error
	GetRunByRunID(ctx context.Context, runID string) (*models.ReconciliationRun, error)
	CreateCase(ctx context.Context, tx *sql.Tx, rec *models.CaseRecord) error
	ListCases(ctx context.Context, runID int64) ([]*models.CaseRecord, error)
	CreateAlert(ctx context.Context, tx *sql.Tx, alert *models.AlertRecord) error
	ListAlerts(ctx context.Context, runID int64) ([]*models.AlertRecord, error)
	CreateAuditEntry(ctx context.Context, tx *sql.Tx, audit *models.ReconciliationAudit) error
}

type reconciliationRepository struct {
	db *sql.DB
}

func NewReconciliationRepository(db *sql.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) CreateRun(ctx context.Context, tx *sql.Tx, run *models.ReconciliationRun) error {
	query := `
		INSERT INTO reconciliation_runs (
			run_id, from_date, to_date, status, invoice_count, cost_doc_count,
			matched_count, partial_count, unmatched_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		run.RunID,
		run.FromDate,
		run.ToDate,
		run.Status,
		run.InvoiceCount,
		run.CostDocCount,
		run.MatchedCount,
		run.PartialCount,
		run.UnmatchedCount,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	return nil
}

func (r *reconciliationRepository) GetRunByRunID(ctx context.Context, runID string) (*models.ReconciliationRun, error) {
	run := &models.ReconciliationRun{}
	query := `
		SELECT id, run_id, DATE_FORMAT(from_date, '%Y-%m-%d'), DATE_FORMAT(to_date, '%Y-%m-%d'),
		       status, invoice_count, cost_doc_count, matched_count, partial_count,
		       unmatched_count, created_at
		FROM reconciliation_runs
		WHERE run_id = ?
	`
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID,
		&run.RunID,
		&run.FromDate,
		&run.ToDate,
		&run.Status,
		&run.InvoiceCount,
		&run.CostDocCount,
		&run.MatchedCount,
		&run.PartialCount,
		&run.UnmatchedCount,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reconciliation run %s: %w", runID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *reconciliationRepository) CreateCase(ctx context.Context, tx *sql.Tx, rec *models.CaseRecord) error {
	query := `
		INSERT INTO reconciliation_cases (
			run_id, case_id, match_score, matched_by, match_status,
			risk_score, margin, margin_rate, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		rec.RunID,
		rec.CaseID,
		rec.MatchScore,
		rec.MatchedBy,
		rec.MatchStatus,
		rec.RiskScore,
		rec.Margin,
		rec.MarginRate,
		[]byte(rec.Payload),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

func (r *reconciliationRepository) ListCases(ctx context.Context, runID int64) ([]*models.CaseRecord, error) {
	query := `
		SELECT id, run_id, case_id, match_score, matched_by, match_status,
		       risk_score, margin, margin_rate, payload, created_at
		FROM reconciliation_cases
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []*models.CaseRecord
	for rows.Next() {
		rec := &models.CaseRecord{}
		var payload []byte
		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.CaseID,
			&rec.MatchScore,
			&rec.MatchedBy,
			&rec.MatchStatus,
			&rec.RiskScore,
			&rec.Margin,
			&rec.MarginRate,
			&payload,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.Payload = payload
		cases = append(cases, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *reconciliationRepository) CreateAlert(ctx context.Context, tx *sql.Tx, alert *models.AlertRecord) error {
	query := `
		INSERT INTO risk_alerts (
			run_id, case_id, alert_id, code, severity, message
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		alert.RunID,
		alert.CaseID,
		alert.AlertID,
		alert.Code,
		alert.Severity,
		alert.Message,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	alert.ID = id
	return nil
}

func (r *reconciliationRepository) ListAlerts(ctx context.Context, runID int64) ([]*models.AlertRecord, error) {
	query := `
		SELECT id, run_id, case_id, alert_id, code, severity, message, created_at
		FROM risk_alerts
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*models.AlertRecord
	for rows.Next() {
		a := &models.AlertRecord{}
		err := rows.Scan(&a.ID, &a.RunID, &a.CaseID, &a.AlertID, &a.Code, &a.Severity, &a.Message, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *reconciliationRepository) CreateAuditEntry(ctx context.Context, tx *sql.Tx, audit *models.ReconciliationAudit) error {
	query := `
		INSERT INTO reconciliation_audit (
			run_id, action, details, user_id
		) VALUES (?, ?, ?, ?)
	`
	var runID sql.NullInt64
	if audit.RunID != nil {
		runID = sql.NullInt64{Int64: *audit.RunID, Valid: true}
	}
	result, err := tx.ExecContext(ctx, query,
		runID,
		audit.Action,
		[]byte(audit.Details),
		audit.UserID,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	audit.ID = id
	return nil
}
