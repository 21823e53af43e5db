// Package match pairs the employee documents of two payslip files.
package match

import (
	"github.com/dgallion1/payrecon/internal/segment"
)

// MatchedBy records which identity signal produced a pair.
type MatchedBy string

const (
	ByNIR            MatchedBy = "nir"
	ByExactKey       MatchedBy = "exact_key"
	ByName           MatchedBy = "name"
	ByEmployeeCode   MatchedBy = "employee_code" // fallback label, not a confirmed code match
	BySingleDocument MatchedBy = "single_document"
)

var labels = map[MatchedBy]string{
	ByNIR:            "NIR",
	ByExactKey:       "Clé exacte",
	ByName:           "Nom + Prénom",
	ByEmployeeCode:   "Matricule",
	BySingleDocument: "Unique",
}

// Label is the display name shown in reports.
func (m MatchedBy) Label() string {
	if l, ok := labels[m]; ok {
		return l
	}
	return string(m)
}

// Pair references at most one document per side. Documents stay owned by
// their source collection.
type Pair struct {
	Key       segment.Identity          `json:"key"`
	A         *segment.EmployeeDocument `json:"a"`
	B         *segment.EmployeeDocument `json:"b"`
	MatchedBy MatchedBy                 `json:"matched_by"`
}

// pairer holds the per-call state: which documents already belong to a pair.
type pairer struct {
	a, b      *segment.Documents
	consumedA map[*segment.EmployeeDocument]bool
	consumedB map[*segment.EmployeeDocument]bool
}

// PairMaps returns one pair per identity across both collections. Source A
// identities come first in first-seen order, then identities only present in
// B. A document adopted through NIR or name lookup is not reported again
// under its own key.
func PairMaps(a, b *segment.Documents) []Pair {
	p := &pairer{
		a:         a,
		b:         b,
		consumedA: make(map[*segment.EmployeeDocument]bool),
		consumedB: make(map[*segment.EmployeeDocument]bool),
	}

	keys := a.Identities()
	for _, id := range b.Identities() {
		if _, ok := a.Get(id); !ok {
			keys = append(keys, id)
		}
	}

	pairs := make([]Pair, 0, len(keys))
	for _, key := range keys {
		if pair, ok := p.pair(key); ok {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

func (p *pairer) pair(key segment.Identity) (Pair, bool) {
	da, okA := p.a.Get(key)
	if okA && p.consumedA[da] {
		da, okA = nil, false
	}
	db, okB := p.b.Get(key)
	if okB && p.consumedB[db] {
		db, okB = nil, false
	}
	if !okA && !okB {
		return Pair{}, false
	}

	out := Pair{Key: key, A: da, B: db}
	switch {
	case okA && okB:
		switch {
		case da.NIR != "" && da.NIR == db.NIR:
			out.MatchedBy = ByNIR
		case key.IsUnidentified():
			out.MatchedBy = BySingleDocument
		default:
			out.MatchedBy = ByExactKey
		}
	case okA:
		out.B, out.MatchedBy = lookup(da, p.b, p.a, p.consumedB)
	default:
		out.A, out.MatchedBy = lookup(db, p.a, p.b, p.consumedA)
	}

	if out.MatchedBy == "" {
		out.MatchedBy = ByEmployeeCode
		if key.IsUnidentified() {
			out.MatchedBy = BySingleDocument
		}
	}
	if out.A != nil {
		p.consumedA[out.A] = true
	}
	if out.B != nil {
		p.consumedB[out.B] = true
	}
	return out, true
}

// lookup searches other for the counterpart of doc: same NIR first, then same
// SURNAME|FIRSTNAME. A candidate is eligible only when its own key is absent
// from doc's collection and it is not already paired. First eligible wins.
func lookup(doc *segment.EmployeeDocument, other, own *segment.Documents, consumed map[*segment.EmployeeDocument]bool) (*segment.EmployeeDocument, MatchedBy) {
	eligible := func(c *segment.EmployeeDocument) bool {
		if consumed[c] {
			return false
		}
		_, taken := own.Get(c.Identity)
		return !taken
	}

	if doc.NIR != "" {
		for _, c := range other.All() {
			if c.NIR == doc.NIR && eligible(c) {
				return c, ByNIR
			}
		}
	}
	if name := doc.NameKey(); name != "" {
		for _, c := range other.All() {
			if c.NameKey() == name && eligible(c) {
				return c, ByName
			}
		}
	}
	return nil, ""
}
