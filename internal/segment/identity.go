package segment

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	nirRe       = regexp.MustCompile(`\b(?:\d[ \x{202f}]?){13,17}\b`)
	matriculeRe = regexp.MustCompile(`(?i)\bMatricule\s*[:：]?\s*([A-Za-z0-9]+)\b`)
	nameRe      = regexp.MustCompile(`\b(Monsieur|Madame)\s+([A-ZÀÂÄÇÉÈÊËÎÏÔÖÙÛÜ' -]{2,})\s+([A-Za-zÀ-ÿ' -]{2,})`)
	nonDigitRe  = regexp.MustCompile(`\D`)
)

// Identity keys an employee document. The zero value is the unidentified
// bucket used when a file carries no identity marker before its first page;
// it never collides with a real key since real keys are non-empty.
type Identity struct {
	key string
}

// Unidentified is the single-document bucket.
var Unidentified = Identity{}

// IdentityOf wraps a NIR or employee code. An empty key yields Unidentified.
func IdentityOf(key string) Identity {
	return Identity{key: strings.TrimSpace(key)}
}

// Key returns the underlying key, and false for the unidentified bucket.
func (id Identity) Key() (string, bool) {
	return id.key, id.key != ""
}

// IsUnidentified reports whether id is the single-document bucket.
func (id Identity) IsUnidentified() bool {
	return id.key == ""
}

func (id Identity) String() string {
	if id.key == "" {
		return "(unidentified)"
	}
	return id.key
}

// MarshalJSON encodes the unidentified bucket as null.
func (id Identity) MarshalJSON() ([]byte, error) {
	if id.key == "" {
		return []byte("null"), nil
	}
	return json.Marshal(id.key)
}

// UnmarshalJSON accepts a string key or null.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var key *string
	if err := json.Unmarshal(data, &key); err != nil {
		return err
	}
	if key == nil {
		*id = Unidentified
		return nil
	}
	*id = IdentityOf(*key)
	return nil
}

// PageIdentity holds the identity signals found on one page. Empty strings
// mean "not found".
type PageIdentity struct {
	NIR          string
	EmployeeCode string
	LastName     string
	FirstName    string
}

// Identity picks the grouping key: the NIR first, then the employee code.
func (p PageIdentity) Identity() Identity {
	if p.NIR != "" {
		return IdentityOf(p.NIR)
	}
	return IdentityOf(p.EmployeeCode)
}

// ExtractIdentity looks for a 13-17 digit national insurance number, a
// "Matricule" code and a "Monsieur|Madame SURNAME Firstname" pair.
func ExtractIdentity(text string) PageIdentity {
	var p PageIdentity
	if m := nirRe.FindString(text); m != "" {
		p.NIR = nonDigitRe.ReplaceAllString(m, "")
	}
	if m := matriculeRe.FindStringSubmatch(text); m != nil {
		p.EmployeeCode = m[1]
	}
	if m := nameRe.FindStringSubmatch(text); m != nil {
		p.LastName = strings.TrimSpace(m[2])
		p.FirstName = strings.TrimSpace(m[3])
	}
	return p
}
