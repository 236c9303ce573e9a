package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pilotage-service/internal/export"
	"pilotage-service/internal/matching"
	"pilotage-service/internal/models"
	"pilotage-service/internal/reconciler"
	"pilotage-service/internal/report"
	"pilotage-service/internal/risk"
	"pilotage-service/internal/rules"
)

type reconcileOptions struct {
	invoicesFile  string
	costsFile     string
	rulesFile     string
	referenceFile string
	xlsxFile      string
	normalizeRefs bool
	workers       int
	summaryOnly   bool
}

func reconcileCmd() *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile invoices with cost documents",
		Long: `Read invoices and cost documents from JSON files, build one case per invoice,
evaluate risk and profitability, and print the report as JSON.

Both files hold a JSON array. Use --xlsx to also write an Excel workbook.`,
		Example: `  pilotage reconcile --invoices invoices.json --costs costs.json
  pilotage reconcile --invoices invoices.json --costs costs.json --rules rules.yaml --xlsx report.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.invoicesFile, "invoices", "", "JSON file with the invoices (required)")
	cmd.Flags().StringVar(&opts.costsFile, "costs", "", "JSON file with the cost documents (required)")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "YAML rule set (default: built-in rules)")
	cmd.Flags().StringVar(&opts.referenceFile, "reference", "", "YAML reference tables (default: built-in tables)")
	cmd.Flags().StringVar(&opts.xlsxFile, "xlsx", "", "write the report as an Excel workbook to this path")
	cmd.Flags().BoolVar(&opts.normalizeRefs, "normalize-refs", false, "compare references case-insensitively, ignoring surrounding spaces")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "number of parallel workers")
	cmd.Flags().BoolVar(&opts.summaryOnly, "summary", false, "print only the portfolio summary")
	_ = cmd.MarkFlagRequired("invoices")
	_ = cmd.MarkFlagRequired("costs")

	return cmd
}

func runReconcile(cmd *cobra.Command, opts reconcileOptions) error {
	var invoices []models.Invoice
	if err := readJSON(opts.invoicesFile, &invoices); err != nil {
		return err
	}
	var costDocs []models.CostDocument
	if err := readJSON(opts.costsFile, &costDocs); err != nil {
		return err
	}

	ruleSet, err := rules.LoadRuleSet(opts.rulesFile)
	if err != nil {
		return err
	}
	ref, err := rules.LoadReference(opts.referenceFile)
	if err != nil {
		return err
	}

	cases, err := reconciler.ReconcileParallel(cmd.Context(), invoices, costDocs, ruleSet,
		reconciler.Options{Matching: matching.Options{NormalizeRefs: opts.normalizeRefs}}, opts.workers)
	if err != nil {
		return err
	}

	rep := report.Build(cases, report.Inputs{
		Reference:     ref.Data(),
		Profitability: ref.Profitability,
		Risk:          risk.OptionsFromRules(ruleSet),
	})
	slog.Info("reconciliation done",
		"invoices", len(invoices),
		"cost_documents", len(costDocs),
		"matched", rep.StatusCounts[models.MatchStatusMatch],
		"partial", rep.StatusCounts[models.MatchStatusPartial],
		"unmatched", rep.StatusCounts[models.MatchStatusNone],
	)

	if opts.xlsxFile != "" {
		if err := writeWorkbook(opts.xlsxFile, rep); err != nil {
			return err
		}
		slog.Info("workbook written", "path", opts.xlsxFile)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if opts.summaryOnly {
		return enc.Encode(rep.Summary)
	}
	return enc.Encode(rep)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func writeWorkbook(path string, rep report.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return export.WriteWorkbook(f, rep)
}
