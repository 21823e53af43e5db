// Package textnorm normalizes extracted payslip text and parses French-style
// decimal amounts.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultLookahead is how many lines after a label FindValueAfter inspects.
const DefaultLookahead = 3

var (
	spaceReplacer = strings.NewReplacer("\u202f", " ", "\u00a0", " ")
	whitespaceRe  = regexp.MustCompile(`\s+`)
	amountRe      = regexp.MustCompile(`\d{1,3}(?:[ \x{202f}.,]\d{3})*[.,]\d{2}|\d+[.,]\d{2}`)
	decimalRe     = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)
)

// Normalize replaces no-break and narrow no-break spaces with plain spaces.
// Line breaks are preserved.
func Normalize(text string) string {
	return spaceReplacer.Replace(text)
}

// CleanLines splits text into lines, collapses internal whitespace and drops
// blank lines.
func CleanLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ParseAmount parses a decimal token written with either comma or dot as the
// decimal separator and space, narrow space or dot as thousands separator.
// Malformed input yields ok=false.
func ParseAmount(token string) (value float64, ok bool) {
	t := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, token)
	if t == "" {
		return 0, false
	}
	t = strings.ReplaceAll(t, ",", ".")

	if strings.Count(t, ".") > 1 {
		last := strings.LastIndexByte(t, '.')
		frac := t[last+1:]
		intPart := strings.ReplaceAll(t[:last], ".", "")
		if len(frac) == 2 && isDigits(frac) {
			t = intPart + "." + frac
		} else {
			t = intPart + frac
		}
	}

	if !decimalRe.MatchString(t) {
		return 0, false
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// FindAmountsInLine returns every decimal amount of line, left to right.
func FindAmountsInLine(line string) []float64 {
	var out []float64
	for _, tok := range amountRe.FindAllString(line, -1) {
		if v, ok := ParseAmount(tok); ok {
			out = append(out, v)
		}
	}
	return out
}

// FindValueAfter scans lines[start] and up to lookahead following lines and
// returns the last amount of the first line holding any amount.
func FindValueAfter(lines []string, start, lookahead int) (float64, bool) {
	for k := start; k <= start+lookahead; k++ {
		if k < 0 || k >= len(lines) {
			continue
		}
		if nums := FindAmountsInLine(lines[k]); len(nums) > 0 {
			return nums[len(nums)-1], true
		}
	}
	return 0, false
}

// FoldAccents strips diacritics (NFD decomposition, combining marks removed)
// so that "Congés" and "Conges" compare equal.
func FoldAccents(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
