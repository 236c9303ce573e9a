package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pilotage-service/internal/database"
	"pilotage-service/internal/export"
	"pilotage-service/internal/matching"
	"pilotage-service/internal/models"
	"pilotage-service/internal/reconciler"
	"pilotage-service/internal/report"
	"pilotage-service/internal/repositories"
	"pilotage-service/internal/risk"
	"pilotage-service/internal/rules"
	"pilotage-service/internal/storage"
)

const (
	systemUser = "system"

	// costDocWindowDays widens the run range when loading cost documents,
	// which are often dated before or after the invoice they support.
	costDocWindowDays = 30

	dateLayout = "2006-01-02"
)

// EngineSettings are the rule and reference tables applied to every run.
type EngineSettings struct {
	Rules     models.RuleSet
	Reference rules.Reference
	Options   reconciler.Options
	Workers   int
}

// Inputs returns the report inputs derived from the settings.
func (e EngineSettings) Inputs() report.Inputs {
	return report.Inputs{
		Reference:     e.Reference.Data(),
		Profitability: e.Reference.Profitability,
		Risk:          risk.OptionsFromRules(e.Rules),
	}
}

type ReconciliationService struct {
	db                 *sql.DB
	invoiceRepo        repositories.InvoiceRepository
	costDocRepo        repositories.CostDocumentRepository
	reconciliationRepo repositories.ReconciliationRepository
	store              storage.ReportStore
	engine             EngineSettings
}

func NewReconciliationService(
	db *sql.DB,
	invoiceRepo repositories.InvoiceRepository,
	costDocRepo repositories.CostDocumentRepository,
	reconciliationRepo repositories.ReconciliationRepository,
	store storage.ReportStore,
	engine EngineSettings,
) *ReconciliationService {
	if engine.Workers < 1 {
		engine.Workers = 1
	}
	return &ReconciliationService{
		db:                 db,
		invoiceRepo:        invoiceRepo,
		costDocRepo:        costDocRepo,
		reconciliationRepo: reconciliationRepo,
		store:              store,
		engine:             engine,
	}
}

type ReconciliationResult struct {
	Run    *models.ReconciliationRun `json:"run"`
	Report report.Report             `json:"report"`
}

type RunDetails struct {
	Run    *models.ReconciliationRun `json:"run"`
	Alerts []*models.AlertRecord     `json:"alerts"`
}

type ExportResult struct {
	RunID    string `json:"run_id"`
	Location string `json:"location"`
	Cached   bool   `json:"cached"`
	Data     []byte `json:"-"`
}

// EvaluateInput is a stateless evaluation request.
type EvaluateInput struct {
	Invoices      []models.Invoice      `json:"invoices"`
	CostDocuments []models.CostDocument `json:"cost_documents"`
	Rules         *models.RuleSet       `json:"rules,omitempty"`
	NormalizeRefs *bool                 `json:"normalize_refs,omitempty"`
}

// StartReconciliation reconciles the invoices dated within [fromDate, toDate]
// against the stored cost documents and persists the run.
func (s *ReconciliationService) StartReconciliation(ctx context.Context, fromDate, toDate string) (*ReconciliationResult, error) {
	from, to, err := parseRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	invoices, costDocs, err := s.loadData(ctx, from, to)
	if err != nil {
		return nil, err
	}

	cases, err := reconciler.ReconcileParallel(ctx, invoices, costDocs, s.engine.Rules, s.engine.Options, s.engine.Workers)
	if err != nil {
		return nil, err
	}
	rep := report.Build(cases, s.engine.Inputs())

	run := &models.ReconciliationRun{
		RunID:          uuid.NewString(),
		FromDate:       from.Format(dateLayout),
		ToDate:         to.Format(dateLayout),
		Status:         runStatus(rep),
		InvoiceCount:   len(invoices),
		CostDocCount:   len(costDocs),
		MatchedCount:   rep.StatusCounts[models.MatchStatusMatch],
		PartialCount:   rep.StatusCounts[models.MatchStatusPartial],
		UnmatchedCount: rep.StatusCounts[models.MatchStatusNone],
	}

	err = database.WithTx(ctx, s.db, func(tx *database.Transaction) error {
		return s.persistRun(ctx, tx, run, rep)
	})
	if err != nil {
		return nil, err
	}
	run.CreatedAt = started

	slog.Info("reconciliation completed",
		"run_id", run.RunID,
		"from", run.FromDate,
		"to", run.ToDate,
		"cases", len(cases),
		"status", run.Status,
		"duration", time.Since(started),
	)
	return &ReconciliationResult{Run: run, Report: rep}, nil
}

func (s *ReconciliationService) loadData(ctx context.Context, from, to time.Time) ([]models.Invoice, []models.CostDocument, error) {
	var invoiceRecs []*models.InvoiceRecord
	var docRecs []*models.CostDocumentRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoiceRecs, err = s.invoiceRepo.ListInvoicesByDate(gctx, from.Format(dateLayout), to.Format(dateLayout))
		if err != nil {
			return fmt.Errorf("failed to load invoices: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		docRecs, err = s.costDocRepo.ListCostDocumentsByDate(gctx,
			from.AddDate(0, 0, -costDocWindowDays).Format(dateLayout),
			to.AddDate(0, 0, costDocWindowDays).Format(dateLayout))
		if err != nil {
			return fmt.Errorf("failed to load cost documents: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	invoices := make([]models.Invoice, 0, len(invoiceRecs))
	for _, rec := range invoiceRecs {
		invoices = append(invoices, rec.Invoice)
	}
	docs := make([]models.CostDocument, 0, len(docRecs))
	for _, rec := range docRecs {
		docs = append(docs, rec.Document)
	}
	return invoices, docs, nil
}

func (s *ReconciliationService) persistRun(ctx context.Context, tx *database.Transaction, run *models.ReconciliationRun, rep report.Report) error {
	if err := s.reconciliationRepo.CreateRun(ctx, tx.Tx, run); err != nil {
		return fmt.Errorf("failed to create reconciliation run: %w", err)
	}

	for _, cr := range rep.Cases {
		payload, err := json.Marshal(cr.Case)
		if err != nil {
			return fmt.Errorf("failed to encode case %s: %w", cr.Case.ID, err)
		}
		rec := &models.CaseRecord{
			RunID:       run.ID,
			CaseID:      cr.Case.ID,
			MatchScore:  cr.Case.MatchScore,
			MatchedBy:   cr.Case.MatchedBy,
			MatchStatus: cr.Case.MatchStatus,
			RiskScore:   cr.Risk.RiskScore,
			Margin:      cr.Margin.Amount,
			MarginRate:  cr.Margin.Rate,
			Payload:     payload,
		}
		if err := s.reconciliationRepo.CreateCase(ctx, tx.Tx, rec); err != nil {
			return fmt.Errorf("failed to store case %s: %w", cr.Case.ID, err)
		}

		for _, a := range cr.Risk.Alerts {
			alert := &models.AlertRecord{
				RunID:    run.ID,
				CaseID:   cr.Case.ID,
				AlertID:  a.ID,
				Code:     a.Code,
				Severity: a.Severity,
				Message:  a.Message,
			}
			if err := s.reconciliationRepo.CreateAlert(ctx, tx.Tx, alert); err != nil {
				return fmt.Errorf("failed to store alert %s: %w", a.ID, err)
			}
		}
	}

	auditDetails, _ := json.Marshal(map[string]interface{}{
		"run_id":       run.RunID,
		"cases":        len(rep.Cases),
		"matched":      run.MatchedCount,
		"partial":      run.PartialCount,
		"unmatched":    run.UnmatchedCount,
		"alert_counts": rep.AlertCounts,
	})
	audit := &models.ReconciliationAudit{
		RunID:   &run.ID,
		Action:  models.AuditActionRunCompleted,
		Details: auditDetails,
		UserID:  systemUser,
	}
	if err := s.reconciliationRepo.CreateAuditEntry(ctx, tx.Tx, audit); err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// GetRun returns a stored run and its alerts.
func (s *ReconciliationService) GetRun(ctx context.Context, runID string) (*RunDetails, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	alerts, err := s.reconciliationRepo.ListAlerts(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	if alerts == nil {
		alerts = []*models.AlertRecord{}
	}
	return &RunDetails{Run: run, Alerts: alerts}, nil
}

// GetRunReport rebuilds the report of a stored run from its cases, using the
// reference tables currently configured.
func (s *ReconciliationService) GetRunReport(ctx context.Context, runID string) (*report.Report, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rep, err := s.buildReport(ctx, run)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// ExportRun returns the run workbook. A workbook already in the report store
// is served as is unless refresh is set; otherwise the report is rendered and saved.
func (s *ReconciliationService) ExportRun(ctx context.Context, runID string, refresh bool) (*ExportResult, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	key := storage.ReportKey(run.RunID)

	if !refresh {
		data, err := s.store.Load(ctx, key)
		switch {
		case err == nil:
			slog.Debug("serving stored workbook", "run_id", run.RunID, "key", key)
			return &ExportResult{RunID: run.RunID, Location: key, Cached: true, Data: data}, nil
		case !errors.Is(err, models.ErrNotFound):
			return nil, fmt.Errorf("failed to load workbook: %w", err)
		}
	}

	rep, err := s.buildReport(ctx, run)
	if err != nil {
		return nil, err
	}

	data, err := export.Workbook(rep)
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	location, err := s.store.Save(ctx, storage.SaveInput{
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: storage.ContentTypeXLSX,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store workbook: %w", err)
	}

	err = database.WithTx(ctx, s.db, func(tx *database.Transaction) error {
		auditDetails, _ := json.Marshal(map[string]interface{}{
			"run_id":   run.RunID,
			"location": location,
			"bytes":    len(data),
			"refresh":  refresh,
		})
		return s.reconciliationRepo.CreateAuditEntry(ctx, tx.Tx, &models.ReconciliationAudit{
			RunID:   &run.ID,
			Action:  models.AuditActionRunExported,
			Details: auditDetails,
			UserID:  systemUser,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create audit entry: %w", err)
	}

	slog.Info("reconciliation exported", "run_id", run.RunID, "location", location, "bytes", len(data))
	return &ExportResult{RunID: run.RunID, Location: location, Data: data}, nil
}

func (s *ReconciliationService) getRun(ctx context.Context, runID string) (*models.ReconciliationRun, error) {
	run, err := s.reconciliationRepo.GetRunByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation run: %w", err)
	}
	return run, nil
}

func (s *ReconciliationService) buildReport(ctx context.Context, run *models.ReconciliationRun) (report.Report, error) {
	recs, err := s.reconciliationRepo.ListCases(ctx, run.ID)
	if err != nil {
		return report.Report{}, fmt.Errorf("failed to get cases: %w", err)
	}

	cases := make([]models.Case, 0, len(recs))
	for _, rec := range recs {
		var c models.Case
		if err := json.Unmarshal(rec.Payload, &c); err != nil {
			return report.Report{}, fmt.Errorf("failed to decode case %s: %w", rec.CaseID, err)
		}
		cases = append(cases, c)
	}
	return report.Build(cases, s.engine.Inputs()), nil
}

// Evaluate runs the engine over the posted data without storing anything.
func (s *ReconciliationService) Evaluate(ctx context.Context, input EvaluateInput) (*report.Report, error) {
	ruleSet := s.engine.Rules
	if input.Rules != nil {
		ruleSet = *input.Rules
		for i, rule := range ruleSet.KeywordRules {
			if !rule.CostType.Valid() {
				return nil, fmt.Errorf("%w: rule %d has unknown cost type %q", models.ErrInvalidInput, i, rule.CostType)
			}
		}
	}

	opts := s.engine.Options
	if input.NormalizeRefs != nil {
		opts.Matching = matching.Options{NormalizeRefs: *input.NormalizeRefs}
	}

	cases, err := reconciler.ReconcileParallel(ctx, input.Invoices, input.CostDocuments, ruleSet, opts, s.engine.Workers)
	if err != nil {
		return nil, err
	}

	inputs := s.engine.Inputs()
	inputs.Risk = risk.OptionsFromRules(ruleSet)
	rep := report.Build(cases, inputs)
	return &rep, nil
}

func parseRange(fromDate, toDate string) (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, fromDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from_date must be YYYY-MM-DD", models.ErrInvalidInput)
	}
	to, err := time.Parse(dateLayout, toDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to_date must be YYYY-MM-DD", models.ErrInvalidInput)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to_date is before from_date", models.ErrInvalidInput)
	}
	return from, to, nil
}

func runStatus(rep report.Report) string {
	switch {
	case len(rep.Cases) == 0:
		return models.RunStatusNothingToRecord
	case rep.AlertCounts[models.SeverityBlocker] > 0 || rep.StatusCounts[models.MatchStatusNone] > 0:
		return models.RunStatusNeedsAttention
	default:
		return models.RunStatusCompleted
	}
}
