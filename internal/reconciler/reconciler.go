// Package reconciler turns invoices and cost documents into reconciliation cases.
package reconciler

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"pilotage-service/internal/classification"
	"pilotage-service/internal/matching"
	"pilotage-service/internal/models"
)

// Options configures a reconciliation run.
type Options struct {
	Matching matching.Options
}

// Reconcile builds one Case per invoice, in input order. Inputs are not modified.
func Reconcile(invoices []models.Invoice, costDocs []models.CostDocument, rules models.RuleSet) []models.Case {
	return ReconcileWithOptions(invoices, costDocs, rules, Options{})
}

// ReconcileWithOptions is Reconcile with explicit matcher options.
func ReconcileWithOptions(invoices []models.Invoice, costDocs []models.CostDocument, rules models.RuleSet, opts Options) []models.Case {
	classified, engine := prepare(invoices, costDocs, rules, opts)

	cases := make([]models.Case, len(classified))
	for i, inv := range classified {
		cases[i] = buildCase(i, inv, engine)
	}
	return cases
}

// ReconcileParallel computes the same cases as ReconcileWithOptions with up
// to workers goroutines. It only fails when ctx is cancelled.
func ReconcileParallel(ctx context.Context, invoices []models.Invoice, costDocs []models.CostDocument, rules models.RuleSet, opts Options, workers int) ([]models.Case, error) {
	if workers < 1 {
		workers = 1
	}
	classified, engine := prepare(invoices, costDocs, rules, opts)

	cases := make([]models.Case, len(classified))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, inv := range classified {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cases[i] = buildCase(i, inv, engine)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to reconcile invoices: %w", err)
	}
	return cases, nil
}

func prepare(invoices []models.Invoice, costDocs []models.CostDocument, rules models.RuleSet, opts Options) ([]models.Invoice, *matching.MatchEngine) {
	classifiedInvoices := classification.ClassifyInvoices(invoices, rules)
	classifiedDocs := classification.ClassifyCostDocuments(costDocs, rules)
	return classifiedInvoices, matching.NewMatchEngine(classifiedDocs, opts.Matching)
}

func buildCase(index int, inv models.Invoice, engine *matching.MatchEngine) models.Case {
	res := engine.Match(inv)
	score := matching.ComputeScore(res.Method, inv, res.Docs)

	id := strings.TrimSpace(inv.InvoiceNumber)
	if id == "" {
		id = fmt.Sprintf("case-%d", index+1)
	}

	return models.Case{
		ID:            id,
		Invoice:       inv,
		CostDocs:      res.Docs,
		MatchScore:    score,
		MatchedBy:     res.Method,
		MissingFields: matching.MissingFields(inv),
		MatchStatus:   matching.StatusFromScore(score),
	}
}
