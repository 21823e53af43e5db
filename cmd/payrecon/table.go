package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/payrecon/internal/reconcile"
	"github.com/dgallion1/payrecon/internal/report"
	"github.com/fatih/color"
)

var (
	titleColor   = color.New(color.FgWhite, color.Bold)
	headerColor  = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	badColor     = color.New(color.FgRed)
	blockingMark = color.New(color.FgRed, color.Bold)
)

const (
	labelWidth  = 34
	amountWidth = 14
)

func statusColor(s reconcile.FieldStatus) *color.Color {
	switch s {
	case reconcile.StatusMatch:
		return okColor
	case reconcile.StatusMismatch:
		return badColor
	default:
		return warnColor
	}
}

// writeTable prints one block per employee followed by the totals.
func writeTable(w io.Writer, rows []reconcile.Row, opts report.Options) error {
	var b strings.Builder
	for _, r := range rows {
		if opts.OnlyIssues && r.Discrepancies() == 0 && !r.BlockingIssue() {
			continue
		}
		mark := okColor.Sprint("✓")
		if r.BlockingIssue() {
			mark = blockingMark.Sprint("✗")
		} else if r.Discrepancies() > 0 {
			mark = warnColor.Sprint("!")
		}
		fmt.Fprintf(&b, "%s %s  [%s]\n", mark, titleColor.Sprint(report.RowTitle(r)), r.MatchedByLabel)
		if !r.ExtractionA.HasDocument() {
			fmt.Fprintf(&b, "  %s\n", warnColor.Sprintf("aucun bulletin côté %s", opts.SourceA))
		}
		if !r.ExtractionB.HasDocument() {
			fmt.Fprintf(&b, "  %s\n", warnColor.Sprintf("aucun bulletin côté %s", opts.SourceB))
		}

		header := "  " + padRight("", labelWidth) +
			padLeft("A", amountWidth) + padLeft("B", amountWidth) + padLeft("Écart", amountWidth) + "  statut"
		fmt.Fprintln(&b, headerColor.Sprint(header))
		for _, c := range r.Comparison {
			label := c.Label
			if c.Blocking {
				label += " *"
			}
			delta := ""
			if c.Delta != nil {
				delta = report.FormatValue(*c.Delta)
			}
			fmt.Fprintf(&b, "  %s%s%s%s  %s\n",
				padRight(label, labelWidth),
				padLeft(cell(c.A), amountWidth),
				padLeft(cell(c.B), amountWidth),
				padLeft(delta, amountWidth),
				statusColor(c.Status).Sprint(report.StatusLabel(c.Status)),
			)
		}
		b.WriteString("\n")
	}

	s := reconcile.Summarize(rows)
	fmt.Fprintf(&b, "%d salariés : %d appariés, %d seulement dans %s, %d seulement dans %s\n",
		s.Employees, s.Paired, s.OnlyA, opts.SourceA, s.OnlyB, opts.SourceB)
	summary := fmt.Sprintf("%d conformes, %d avec écart bloquant, %d écarts de champ", s.Clean, s.BlockingIssues, s.Mismatches)
	if s.BlockingIssues > 0 {
		summary = badColor.Sprint(summary)
	} else {
		summary = okColor.Sprint(summary)
	}
	fmt.Fprintln(&b, summary)
	fmt.Fprintln(&b, "* champ bloquant")

	_, err := io.WriteString(w, b.String())
	return err
}

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return report.FormatValue(*v)
}
