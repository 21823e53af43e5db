// Package schema holds the canonical payroll field table: the fields both
// payslip sources are compared on, their units, whether a gap is blocking,
// and the per-source label patterns used to find their values.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed fields.yaml
var embeddedFields []byte

//go:embed fields.schema.json
var documentSchema []byte

var compiledDocumentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fields.schema.json", bytes.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("fields.schema.json")
})

// validateDocument checks the shape of a field table: known keys, types and
// enums. YAML is decoded generically and round-tripped through JSON so the
// validator sees JSON values.
func validateDocument(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	sch, err := compiledDocumentSchema()
	if err != nil {
		return fmt.Errorf("compile field table schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("invalid field table: %w", err)
	}
	return nil
}

// Source selects one of the two payslip issuers being compared.
type Source string

const (
	SourceA Source = "a"
	SourceB Source = "b"
)

// Sources lists the known sources in comparison order.
var Sources = []Source{SourceA, SourceB}

var ErrUnknownSource = errors.New("unknown source")

var sourceAliases = map[string]Source{
	"a":     SourceA,
	"silae": SourceA,
	"b":     SourceB,
	"wagyz": SourceB,
}

// ParseSource resolves a source name or issuer alias.
func ParseSource(s string) (Source, error) {
	if src, ok := sourceAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return src, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Valid reports whether s is exactly one of the known sources.
func (s Source) Valid() bool {
	return s == SourceA || s == SourceB
}

// ValueType is the unit of a field's value.
type ValueType string

const (
	TypeAmount ValueType = "amount"
	TypeDays   ValueType = "days"
)

// LeavePeriod identifies a leave block: the previous reference year or the current one.
type LeavePeriod string

const (
	PeriodPrevious LeavePeriod = "n1"
	PeriodCurrent  LeavePeriod = "n"
)

// LeaveItem is one of the three counters of a leave block.
type LeaveItem string

const (
	ItemAcquired LeaveItem = "acquired"
	ItemTaken    LeaveItem = "taken"
	ItemBalance  LeaveItem = "balance"
)

// LeaveSlot binds a field to a counter of a leave block.
type LeaveSlot struct {
	Period LeavePeriod `yaml:"period" json:"period"`
	Item   LeaveItem   `yaml:"item" json:"item"`
}

// FieldDefinition describes one canonical payroll field.
type FieldDefinition struct {
	Name     string              `yaml:"name" json:"name"`
	Label    string              `yaml:"label" json:"label"`
	Type     ValueType           `yaml:"type" json:"type"`
	Blocking bool                `yaml:"blocking" json:"blocking"`
	Weight   int                 `yaml:"weight" json:"weight"`
	Sources  map[Source][]string `yaml:"sources" json:"sources,omitempty"`
	Leave    *LeaveSlot          `yaml:"leave" json:"leave,omitempty"`

	matchers map[Source][]*regexp.Regexp
}

// Matchers returns the compiled, case-insensitive patterns for src in priority order.
func (f *FieldDefinition) Matchers(src Source) []*regexp.Regexp {
	return f.matchers[src]
}

// IsLeave reports whether the field is filled by the leave window parser.
func (f *FieldDefinition) IsLeave() bool {
	return f.Leave != nil
}

// Schema is an immutable, ordered table of field definitions.
type Schema struct {
	fields []*FieldDefinition
	byName map[string]*FieldDefinition
}

type document struct {
	Fields []*FieldDefinition `yaml:"fields"`
}

// Parse decodes and validates a YAML field table.
func Parse(data []byte) (*Schema, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("schema has no fields")
	}

	s := &Schema{byName: make(map[string]*FieldDefinition, len(doc.Fields))}
	for i, f := range doc.Fields {
		if f == nil || f.Name == "" {
			return nil, fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("field %s: duplicate name", f.Name)
		}
		if f.Type != TypeAmount && f.Type != TypeDays {
			return nil, fmt.Errorf("field %s: invalid type %q", f.Name, f.Type)
		}
		if err := f.compile(); err != nil {
			return nil, err
		}
		s.fields = append(s.fields, f)
		s.byName[f.Name] = f
	}
	return s, nil
}

func (f *FieldDefinition) compile() error {
	if f.Leave != nil {
		switch f.Leave.Period {
		case PeriodPrevious, PeriodCurrent:
		default:
			return fmt.Errorf("field %s: invalid leave period %q", f.Name, f.Leave.Period)
		}
		switch f.Leave.Item {
		case ItemAcquired, ItemTaken, ItemBalance:
		default:
			return fmt.Errorf("field %s: invalid leave item %q", f.Name, f.Leave.Item)
		}
		if f.Blocking {
			return fmt.Errorf("field %s: leave fields cannot be blocking", f.Name)
		}
	}

	f.matchers = make(map[Source][]*regexp.Regexp, len(f.Sources))
	for src, patterns := range f.Sources {
		if !src.Valid() {
			return fmt.Errorf("field %s: %w: %q", f.Name, ErrUnknownSource, src)
		}
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return fmt.Errorf("field %s: pattern %q: %w", f.Name, p, err)
			}
			f.matchers[src] = append(f.matchers[src], re)
		}
	}
	return nil
}

// Load reads a field table from a YAML file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

var defaultSchema = sync.OnceValue(func() *Schema {
	s, err := Parse(embeddedFields)
	if err != nil {
		panic("embedded schema: " + err.Error())
	}
	return s
})

// Default returns the built-in field table.
func Default() *Schema {
	return defaultSchema()
}

// Fields returns the definitions in declaration order.
func (s *Schema) Fields() []*FieldDefinition {
	out := make([]*FieldDefinition, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a definition by canonical name.
func (s *Schema) Field(name string) (*FieldDefinition, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Names returns the canonical field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}
