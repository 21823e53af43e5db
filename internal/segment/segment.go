// Package segment groups the pages of one payslip file into per-employee
// documents.
package segment

import (
	"strings"

	"github.com/dgallion1/payrecon/internal/textnorm"
)

// EmployeeDocument is the accumulated text of every page assigned to one
// identity, with the identity signals seen along the way.
type EmployeeDocument struct {
	Identity     Identity `json:"key"`
	NIR          string   `json:"nir,omitempty"`
	EmployeeCode string   `json:"employee_code,omitempty"`
	LastName     string   `json:"last_name,omitempty"`
	FirstName    string   `json:"first_name,omitempty"`
	Pages        []int    `json:"pages"` // 1-based page numbers, in file order
	Text         string   `json:"-"`
}

// NameKey is the "SURNAME|FIRSTNAME" composite used for name matching.
// It is empty when no surname was found.
func (d *EmployeeDocument) NameKey() string {
	last := strings.ToUpper(strings.TrimSpace(d.LastName))
	if last == "" {
		return ""
	}
	return last + "|" + strings.ToUpper(strings.TrimSpace(d.FirstName))
}

// Documents is an insertion-ordered identity → document map.
type Documents struct {
	order []Identity
	byID  map[Identity]*EmployeeDocument
}

func newDocuments() *Documents {
	return &Documents{byID: make(map[Identity]*EmployeeDocument)}
}

// Get returns the document for id.
func (d *Documents) Get(id Identity) (*EmployeeDocument, bool) {
	if d == nil {
		return nil, false
	}
	doc, ok := d.byID[id]
	return doc, ok
}

// Identities returns the keys in first-seen order.
func (d *Documents) Identities() []Identity {
	if d == nil {
		return nil
	}
	out := make([]Identity, len(d.order))
	copy(out, d.order)
	return out
}

// All returns the documents in first-seen order.
func (d *Documents) All() []*EmployeeDocument {
	if d == nil {
		return nil
	}
	out := make([]*EmployeeDocument, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Len returns the number of documents.
func (d *Documents) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Put adds or replaces a document under its identity.
func (d *Documents) Put(doc *EmployeeDocument) {
	if _, ok := d.byID[doc.Identity]; !ok {
		d.order = append(d.order, doc.Identity)
	}
	d.byID[doc.Identity] = doc
}

// NewDocuments builds a collection from already segmented documents.
func NewDocuments(docs ...*EmployeeDocument) *Documents {
	d := newDocuments()
	for _, doc := range docs {
		d.Put(doc)
	}
	return d
}

// splitter is the fold state threaded through the page sequence.
type splitter struct {
	current Identity
	docs    *Documents
	text    map[Identity]*strings.Builder
}

func (s *splitter) page(num int, raw string) {
	txt := textnorm.Normalize(raw)
	meta := ExtractIdentity(txt)

	// Pages without a marker stay with the current identity; before the
	// first marker that is the unidentified bucket.
	if id := meta.Identity(); !id.IsUnidentified() {
		s.current = id
	}

	doc, ok := s.docs.Get(s.current)
	if !ok {
		doc = &EmployeeDocument{Identity: s.current}
		if !s.current.IsUnidentified() {
			doc.NIR = meta.NIR
			doc.EmployeeCode = meta.EmployeeCode
		}
		s.docs.Put(doc)
		s.text[s.current] = &strings.Builder{}
	}

	b := s.text[s.current]
	b.WriteString("\n")
	b.WriteString(txt)
	doc.Pages = append(doc.Pages, num)

	if doc.LastName == "" {
		doc.LastName = meta.LastName
	}
	if doc.FirstName == "" {
		doc.FirstName = meta.FirstName
	}
}

// SplitPayslips assigns each page to the most recent identity seen. Pages
// before the first identity marker go to the Unidentified bucket and stay
// there even once a real identity appears.
func SplitPayslips(pages []string) *Documents {
	s := &splitter{
		docs: newDocuments(),
		text: make(map[Identity]*strings.Builder),
	}
	for i, p := range pages {
		s.page(i+1, p)
	}
	for id, b := range s.text {
		s.docs.byID[id].Text = b.String()
	}
	return s.docs
}
