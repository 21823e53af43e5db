package report

import (
	"fmt"
	"io"

	"github.com/dgallion1/payrecon/internal/reconcile"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX workbook.
const (
	SummarySheet = "Synthèse"
	DetailSheet  = "Détail"
)

var detailHeaders = []string{
	"Salarié", "Appariement", "Champ", "Bloquant", "A", "B", "Écart", "Statut",
}

// WriteXLSX writes the reconciliation as a workbook with a summary sheet and
// one detail line per employee and field. Amounts are stored as numbers.
func WriteXLSX(w io.Writer, rows []reconcile.Row, opts Options) error {
	opts = opts.withDefaults()
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"; rename it rather than leave it empty.
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("xlsx summary sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailSheet); err != nil {
		return fmt.Errorf("xlsx detail sheet: %w", err)
	}

	s := reconcile.Summarize(rows)
	summary := [][]any{
		{opts.Title},
		{"Source A", opts.SourceA},
		{"Source B", opts.SourceB},
		{},
		{"Salariés", s.Employees},
		{"Appariés", s.Paired},
		{"Seulement A", s.OnlyA},
		{"Seulement B", s.OnlyB},
		{"Conformes", s.Clean},
		{"Bloquants", s.BlockingIssues},
		{"Écarts", s.Mismatches},
	}
	for i, line := range summary {
		for j, v := range line {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SummarySheet, cell, v); err != nil {
				return fmt.Errorf("xlsx summary %s: %w", cell, err)
			}
		}
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 16)
	_ = f.SetColWidth(SummarySheet, "B", "B", 40)

	for i, h := range detailHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(DetailSheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header %s: %w", cell, err)
		}
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(DetailSheet, 1, 1, bold)
	}

	line := 2
	for _, r := range rows {
		if opts.OnlyIssues && r.Discrepancies() == 0 && !r.BlockingIssue() {
			continue
		}
		title := RowTitle(r)
		for _, c := range r.Comparison {
			values := []any{
				title,
				r.MatchedByLabel,
				c.Label,
				yesNo(c.Blocking),
				cellValue(c.A),
				cellValue(c.B),
				cellValue(c.Delta),
				StatusLabel(c.Status),
			}
			for col, v := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, line)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(DetailSheet, cell, v); err != nil {
					return fmt.Errorf("xlsx detail %s: %w", cell, err)
				}
			}
			line++
		}
	}

	_ = f.SetColWidth(DetailSheet, "A", "A", 32)
	_ = f.SetColWidth(DetailSheet, "B", "B", 18)
	_ = f.SetColWidth(DetailSheet, "C", "C", 30)
	_ = f.SetColWidth(DetailSheet, "D", "D", 10)
	_ = f.SetColWidth(DetailSheet, "E", "G", 14)
	_ = f.SetColWidth(DetailSheet, "H", "H", 12)
	if line > 2 {
		if err := f.AutoFilter(DetailSheet, fmt.Sprintf("A1:H%d", line-1), nil); err != nil {
			return fmt.Errorf("xlsx autofilter: %w", err)
		}
	}

	if idx, err := f.GetSheetIndex(SummarySheet); err == nil {
		f.SetActiveSheet(idx)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// cellValue leaves the cell empty when the value was not found.
func cellValue(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(b bool) string {
	if b {
		return "oui"
	}
	return "non"
}
