// Package extract maps free-form payslip text onto the canonical field schema.
package extract

import (
	"fmt"

	"github.com/dgallion1/payrecon/internal/schema"
	"github.com/dgallion1/payrecon/internal/textnorm"
)

// NoDocument is the marker listed as missing when a side has no document.
const NoDocument = "no_document"

// Result holds the canonical values found in one employee document.
// Values has an entry for every schema field; nil means not found.
type Result struct {
	Values          map[string]*float64 `json:"values"`
	Missing         []string            `json:"missing"`
	MissingBlocking []string            `json:"missing_blocking"`
}

// Value returns the value of a field and whether it was found.
func (r Result) Value(field string) (float64, bool) {
	v := r.Values[field]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// HasDocument is false for the NoDocumentResult sentinel.
func (r Result) HasDocument() bool {
	return !(len(r.Missing) == 1 && r.Missing[0] == NoDocument)
}

// NoDocumentResult is the result reported for the absent side of a pair.
func NoDocumentResult() Result {
	return Result{
		Values:          map[string]*float64{},
		Missing:         []string{NoDocument},
		MissingBlocking: []string{NoDocument},
	}
}

// Extractor applies a field schema to document text.
type Extractor struct {
	schema *schema.Schema
}

// New returns an extractor over s, or over the built-in schema when s is nil.
func New(s *schema.Schema) *Extractor {
	if s == nil {
		s = schema.Default()
	}
	return &Extractor{schema: s}
}

// Schema returns the field table in use.
func (e *Extractor) Schema() *schema.Schema {
	return e.schema
}

// Extract finds every schema field in text using the pattern dialect of src.
// Fields that cannot be found are reported as missing; the only error is an
// unknown source.
func (e *Extractor) Extract(text string, src schema.Source) (Result, error) {
	if !src.Valid() {
		return Result{}, fmt.Errorf("extract: %w: %q", schema.ErrUnknownSource, src)
	}

	lines := textnorm.CleanLines(textnorm.Normalize(text))
	fields := e.schema.Fields()
	res := Result{
		Values:          make(map[string]*float64, len(fields)),
		Missing:         []string{},
		MissingBlocking: []string{},
	}

	var leaveFields []*schema.FieldDefinition
	for _, f := range fields {
		if f.IsLeave() {
			leaveFields = append(leaveFields, f)
			continue
		}
		res.set(f, findField(lines, f, src))
	}

	if len(leaveFields) > 0 {
		blocks := parseLeave(lines)
		for _, f := range leaveFields {
			res.set(f, blocks[f.Leave.Period][f.Leave.Item])
		}
	}
	return res, nil
}

func (r *Result) set(f *schema.FieldDefinition, v *float64) {
	r.Values[f.Name] = v
	if v != nil {
		return
	}
	r.Missing = append(r.Missing, f.Name)
	if f.Blocking {
		r.MissingBlocking = append(r.MissingBlocking, f.Name)
	}
}

// findField tries each pattern in order; for a pattern, every matching line
// is tried until one yields an amount.
func findField(lines []string, f *schema.FieldDefinition, src schema.Source) *float64 {
	for _, re := range f.Matchers(src) {
		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			if v, ok := textnorm.FindValueAfter(lines, i, textnorm.DefaultLookahead); ok {
				return &v
			}
		}
	}
	return nil
}

// Extract runs the built-in schema over text.
func Extract(text string, src schema.Source) (Result, error) {
	return New(nil).Extract(text, src)
}
