// Package reconcile is the comparison entry point: it segments both page
// sequences, pairs the employees and extracts every canonical field on each
// side.
package reconcile

import (
	"fmt"
	"math"

	"github.com/dgallion1/payrecon/internal/extract"
	"github.com/dgallion1/payrecon/internal/match"
	"github.com/dgallion1/payrecon/internal/schema"
	"github.com/dgallion1/payrecon/internal/segment"
)

// Tolerance is the largest absolute difference still reported as a match.
const Tolerance = 0.005

// IdentitySummary is the identity of one side of a row; nil fields were not
// found in the document.
type IdentitySummary struct {
	LastName     *string `json:"last_name"`
	FirstName    *string `json:"first_name"`
	NIR          *string `json:"nir"`
	EmployeeCode *string `json:"employee_code"`
}

// FieldStatus is the outcome of comparing one field across both sides.
type FieldStatus string

const (
	StatusMatch       FieldStatus = "match"
	StatusMismatch    FieldStatus = "mismatch"
	StatusMissingA    FieldStatus = "missing_a"
	StatusMissingB    FieldStatus = "missing_b"
	StatusMissingBoth FieldStatus = "missing_both"
)

// FieldComparison puts the two values of a field side by side. Delta is B
// minus A, rounded to the cent, and only set when both values exist.
type FieldComparison struct {
	Field    string           `json:"field"`
	Label    string           `json:"label"`
	Type     schema.ValueType `json:"type"`
	Blocking bool             `json:"blocking"`
	A        *float64         `json:"a"`
	B        *float64         `json:"b"`
	Delta    *float64         `json:"delta,omitempty"`
	Status   FieldStatus      `json:"status"`
}

// Row is the comparison of one employee across both files.
type Row struct {
	Key            segment.Identity  `json:"key"`
	MatchedBy      match.MatchedBy   `json:"matched_by"`
	MatchedByLabel string            `json:"matched_by_label"`
	A              *IdentitySummary  `json:"identity_a"`
	B              *IdentitySummary  `json:"identity_b"`
	PagesA         []int             `json:"pages_a,omitempty"`
	PagesB         []int             `json:"pages_b,omitempty"`
	ExtractionA    extract.Result    `json:"extraction_a"`
	ExtractionB    extract.Result    `json:"extraction_b"`
	Comparison     []FieldComparison `json:"comparison"`
}

// Discrepancies counts fields that are not a match.
func (r Row) Discrepancies() int {
	n := 0
	for _, c := range r.Comparison {
		if c.Status != StatusMatch {
			n++
		}
	}
	return n
}

// BlockingIssue reports whether a blocking field is missing on either side
// or differs between sides.
func (r Row) BlockingIssue() bool {
	if len(r.ExtractionA.MissingBlocking) > 0 || len(r.ExtractionB.MissingBlocking) > 0 {
		return true
	}
	for _, c := range r.Comparison {
		if c.Blocking && c.Status == StatusMismatch {
			return true
		}
	}
	return false
}

// Engine runs reconciliations against one field schema. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	extractor *extract.Extractor
}

// New returns an engine over s, or over the built-in schema when s is nil.
func New(s *schema.Schema) *Engine {
	return &Engine{extractor: extract.New(s)}
}

// Schema returns the field table in use.
func (e *Engine) Schema() *schema.Schema {
	return e.extractor.Schema()
}

// Reconcile compares the pages of a Source A file with those of a Source B
// file. Output is always produced: when neither file yields a document, a
// single unidentified row with both sides absent is returned.
func (e *Engine) Reconcile(pagesA, pagesB []string) ([]Row, error) {
	docsA := segment.SplitPayslips(pagesA)
	docsB := segment.SplitPayslips(pagesB)

	pairs := match.PairMaps(docsA, docsB)
	if len(pairs) == 0 {
		pairs = []match.Pair{{Key: segment.Unidentified, MatchedBy: match.BySingleDocument}}
	}

	rows := make([]Row, 0, len(pairs))
	for _, p := range pairs {
		row, err := e.row(p)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (e *Engine) row(p match.Pair) (Row, error) {
	row := Row{
		Key:            p.Key,
		MatchedBy:      p.MatchedBy,
		MatchedByLabel: p.MatchedBy.Label(),
		A:              summarize(p.A),
		B:              summarize(p.B),
	}

	var err error
	if row.ExtractionA, err = e.side(p.A, schema.SourceA); err != nil {
		return Row{}, err
	}
	if row.ExtractionB, err = e.side(p.B, schema.SourceB); err != nil {
		return Row{}, err
	}
	if p.A != nil {
		row.PagesA = p.A.Pages
	}
	if p.B != nil {
		row.PagesB = p.B.Pages
	}
	row.Comparison = compare(e.Schema(), row.ExtractionA, row.ExtractionB)
	return row, nil
}

func (e *Engine) side(doc *segment.EmployeeDocument, src schema.Source) (extract.Result, error) {
	if doc == nil {
		return extract.NoDocumentResult(), nil
	}
	res, err := e.extractor.Extract(doc.Text, src)
	if err != nil {
		return extract.Result{}, fmt.Errorf("reconcile %s: %w", doc.Identity, err)
	}
	return res, nil
}

func summarize(doc *segment.EmployeeDocument) *IdentitySummary {
	if doc == nil {
		return nil
	}
	return &IdentitySummary{
		LastName:     optional(doc.LastName),
		FirstName:    optional(doc.FirstName),
		NIR:          optional(doc.NIR),
		EmployeeCode: optional(doc.EmployeeCode),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func compare(s *schema.Schema, a, b extract.Result) []FieldComparison {
	fields := s.Fields()
	out := make([]FieldComparison, 0, len(fields))
	for _, f := range fields {
		c := FieldComparison{
			Field:    f.Name,
			Label:    f.Label,
			Type:     f.Type,
			Blocking: f.Blocking,
			A:        a.Values[f.Name],
			B:        b.Values[f.Name],
		}
		switch {
		case c.A == nil && c.B == nil:
			c.Status = StatusMissingBoth
		case c.A == nil:
			c.Status = StatusMissingA
		case c.B == nil:
			c.Status = StatusMissingB
		default:
			d := math.Round((*c.B-*c.A)*100) / 100
			c.Delta = &d
			c.Status = StatusMismatch
			if math.Abs(*c.B-*c.A) <= Tolerance {
				c.Status = StatusMatch
			}
		}
		out = append(out, c)
	}
	return out
}

// Reconcile runs the built-in schema over both page sequences.
func Reconcile(pagesA, pagesB []string) ([]Row, error) {
	return New(nil).Reconcile(pagesA, pagesB)
}
