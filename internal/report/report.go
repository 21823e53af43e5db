// Package report renders reconciliation rows as a Markdown discrepancy
// report, and as HTML through goldmark.
package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"strings"

	"github.com/dgallion1/payrecon/internal/reconcile"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Options labels the report.
type Options struct {
	Title   string
	SourceA string // file or issuer name shown for side A
	SourceB string
	// OnlyIssues hides rows that have no discrepancy at all.
	OnlyIssues bool
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Rapprochement des bulletins de paie"
	}
	if o.SourceA == "" {
		o.SourceA = "A"
	}
	if o.SourceB == "" {
		o.SourceB = "B"
	}
	return o
}

var statusLabels = map[reconcile.FieldStatus]string{
	reconcile.StatusMatch:       "OK",
	reconcile.StatusMismatch:    "Écart",
	reconcile.StatusMissingA:    "Absent A",
	reconcile.StatusMissingB:    "Absent B",
	reconcile.StatusMissingBoth: "Absent",
}

// StatusLabel is the display text of a field status.
func StatusLabel(s reconcile.FieldStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// WriteMarkdown writes the summary table followed by one section per
// employee.
func WriteMarkdown(w io.Writer, rows []reconcile.Row, opts Options) error {
	opts = opts.withDefaults()
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escape(opts.Title))
	fmt.Fprintf(&b, "Source A : %s · Source B : %s\n\n", escape(opts.SourceA), escape(opts.SourceB))

	s := reconcile.Summarize(rows)
	b.WriteString("| Salariés | Appariés | Seulement A | Seulement B | Conformes | Bloquants | Écarts |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d |\n",
		s.Employees, s.Paired, s.OnlyA, s.OnlyB, s.Clean, s.BlockingIssues, s.Mismatches)

	for _, r := range rows {
		if opts.OnlyIssues && r.Discrepancies() == 0 && !r.BlockingIssue() {
			continue
		}
		writeRow(&b, r, opts)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRow(b *strings.Builder, r reconcile.Row, opts Options) {
	fmt.Fprintf(b, "\n## %s\n\n", escape(RowTitle(r)))
	fmt.Fprintf(b, "Appariement : **%s**", escape(r.MatchedByLabel))
	if len(r.PagesA) > 0 {
		fmt.Fprintf(b, " · pages A : %s", pageList(r.PagesA))
	}
	if len(r.PagesB) > 0 {
		fmt.Fprintf(b, " · pages B : %s", pageList(r.PagesB))
	}
	b.WriteString("\n\n")

	if !r.ExtractionA.HasDocument() {
		fmt.Fprintf(b, "> Aucun bulletin côté %s.\n\n", escape(opts.SourceA))
	}
	if !r.ExtractionB.HasDocument() {
		fmt.Fprintf(b, "> Aucun bulletin côté %s.\n\n", escape(opts.SourceB))
	}

	fmt.Fprintf(b, "| Champ | %s | %s | Écart | Statut |\n", escape(opts.SourceA), escape(opts.SourceB))
	b.WriteString("|---|---:|---:|---:|---|\n")
	for _, c := range r.Comparison {
		label := escape(c.Label)
		if c.Blocking {
			label = "**" + label + "**"
		}
		delta := ""
		if c.Delta != nil {
			delta = FormatValue(*c.Delta)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			label, formatPtr(c.A), formatPtr(c.B), delta, StatusLabel(c.Status))
	}
}

// RowTitle names the employee of a row from whichever side carries a name.
func RowTitle(r reconcile.Row) string {
	var last, first string
	for _, id := range []*reconcile.IdentitySummary{r.A, r.B} {
		if id == nil {
			continue
		}
		if last == "" && id.LastName != nil {
			last = *id.LastName
		}
		if first == "" && id.FirstName != nil {
			first = *id.FirstName
		}
	}
	name := strings.TrimSpace(last + " " + first)
	key, ok := r.Key.Key()
	switch {
	case name != "" && ok:
		return fmt.Sprintf("%s (%s)", name, key)
	case name != "":
		return name
	case ok:
		return key
	default:
		return "Bulletin non identifié"
	}
}

// FormatValue writes a value the French way: space thousands separator and
// decimal comma, two decimals.
func FormatValue(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole := fmt.Sprintf("%d", cents/100)

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(r)
	}
	out := fmt.Sprintf("%s,%02d", grouped.String(), cents%100)
	if neg && cents != 0 {
		out = "-" + out
	}
	return out
}

func formatPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return FormatValue(*v)
}

func pageList(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;",
)

func escape(s string) string {
	return mdEscaper.Replace(s)
}

// Markdown returns the Markdown report as a string.
func Markdown(rows []reconcile.Row, opts Options) string {
	var b strings.Builder
	_ = WriteMarkdown(&b, rows, opts)
	return b.String()
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

const htmlHead = `<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
table { border-collapse: collapse; margin-bottom: 1rem; }
th, td { border: 1px solid #ccc; padding: .25rem .5rem; }
blockquote { color: #a33; margin-left: 0; }
</style>
</head>
<body>
`

// WriteHTML renders the Markdown report to a standalone HTML page.
func WriteHTML(w io.Writer, rows []reconcile.Row, opts Options) error {
	opts = opts.withDefaults()
	var src bytes.Buffer
	if err := WriteMarkdown(&src, rows, opts); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := md.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if _, err := fmt.Fprintf(w, htmlHead, html.EscapeString(opts.Title)); err != nil {
		return err
	}
	if _, err := body.WriteTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}
