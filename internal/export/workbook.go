// Package export renders a reconciliation report as an XLSX workbook.
package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"pilotage-service/internal/models"
	"pilotage-service/internal/report"
)

// Sheet names, in workbook order.
const (
	SheetCases   = "Dossiers"
	SheetAlerts  = "Alertes"
	SheetSummary = "Synthese"
)

var caseHeader = []interface{}{
	"Dossier", "Client", "Facture", "Date", "Destination", "Incoterm", "Transitaire",
	"Statut", "Méthode", "Score", "CA HT", "Coûts", "Marge", "Taux marge %",
	"Couverture transit", "Non refacturé", "Score risque", "Rentabilité", "Champs manquants",
}

var alertHeader = []interface{}{"Dossier", "Alerte", "Code", "Gravité", "Message", "Valeur"}

// WriteWorkbook writes rep as an XLSX document to w.
func WriteWorkbook(w io.Writer, rep report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCases); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetAlerts, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeCases(f, rep, bold); err != nil {
		return err
	}
	if err := writeAlerts(f, rep, bold); err != nil {
		return err
	}
	if err := writeSummary(f, rep.Summary, bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Workbook returns rep as XLSX bytes.
func Workbook(rep report.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCases(f *excelize.File, rep report.Report, style int) error {
	if err := writeHeader(f, SheetCases, caseHeader, style); err != nil {
		return err
	}
	for i, cr := range rep.Cases {
		c := cr.Case
		forwarder := ""
		if len(c.CostDocs) > 0 {
			forwarder = c.CostDocs[0].Supplier
		}
		row := []interface{}{
			c.ID, c.Invoice.ClientName, c.Invoice.InvoiceNumber, c.Invoice.InvoiceDate,
			c.Invoice.Destination, c.Invoice.Incoterm, forwarder,
			string(c.MatchStatus), string(c.MatchedBy), c.MatchScore,
			c.Invoice.HT(), cr.Totals.Total, cr.Margin.Amount, round2(cr.Margin.Rate),
			round2(cr.Coverage.Coverage), cr.Coverage.Uncovered, cr.Risk.RiskScore,
			string(cr.Profitability.Status), strings.Join(c.MissingFields, ", "),
		}
		if err := writeRow(f, SheetCases, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeAlerts(f *excelize.File, rep report.Report, style int) error {
	if err := writeHeader(f, SheetAlerts, alertHeader, style); err != nil {
		return err
	}
	row := 2
	for _, cr := range rep.Cases {
		for _, a := range cr.Risk.Alerts {
			var value interface{}
			if a.Value != nil {
				value = *a.Value
			}
			if err := writeRow(f, SheetAlerts, row, []interface{}{
				cr.Case.ID, a.ID, a.Code, string(a.Severity), a.Message, value,
			}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s models.CircuitSummary, style int) error {
	rows := [][]interface{}{
		{"Indicateur", "Valeur"},
		{"Dossiers", s.CaseCount},
		{"CA HT", s.TotalRevenue},
		{"Coûts", s.TotalCosts},
		{"Marge", s.TotalMargin},
		{"Couverture transit moyenne", round2(s.CoverageAverage)},
		{"Transit non refacturé", s.UncoveredTotal},
		{},
		{"Regroupement", "Clé", "Dossiers", "Marge"},
	}
	groups := []struct {
		label   string
		buckets map[string]models.Bucket
	}{
		{"Destination", s.ByDestination},
		{"Client", s.ByClient},
		{"Incoterm", s.ByIncoterm},
		{"Transitaire", s.ByForwarder},
	}
	for _, g := range groups {
		keys := make([]string, 0, len(g.buckets))
		for k := range g.buckets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b := g.buckets[k]
			rows = append(rows, []interface{}{g.label, k, b.Count, b.Margin})
		}
	}

	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		if err := writeRow(f, SheetSummary, i+1, r); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(SheetSummary, 1, 1, style); err != nil {
		return fmt.Errorf("failed to style %s header: %w", SheetSummary, err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve cell for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
