package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ReplacesNoBreakSpaces(t *testing.T) {
	in := "Net\u00a0à payer\n2\u202f500,00"
	got := Normalize(in)
	assert.Equal(t, "Net à payer\n2 500,00", got)
	assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
	assert.Equal(t, "", Normalize(""))
}

func TestCleanLines(t *testing.T) {
	in := "  Salaire   brut \t 2 500,00\n\n   \nNet à payer\r\n"
	assert.Equal(t, []string{"Salaire brut 2 500,00", "Net à payer"}, CleanLines(in))
	assert.Empty(t, CleanLines(""))
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1 234,56", 1234.56},
		{"1.234,56", 1234.56},
		{"1234.56", 1234.56},
		{"1\u202f234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.234.567,89", 1234567.89},
		{"1.234.567", 1234567},
		{"151,67", 151.67},
		{"25", 25},
		{"2,5", 2.5},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		require.True(t, ok, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, tc.in)
	}
}

func TestParseAmount_Malformed(t *testing.T) {
	for _, in := range []string{"abc", "", "   ", "Inf", "NaN", "12a,00", "0x1p3", ",", "1,2,3,4x"} {
		_, ok := ParseAmount(in)
		assert.False(t, ok, "%q should not parse", in)
	}
}

func TestFindAmountsInLine(t *testing.T) {
	got := FindAmountsInLine("Salaire de base 151,67 16,4800 2 500,00 1.234,56")
	assert.Equal(t, []float64{151.67, 16.48, 2500.00, 1234.56}, got)
	assert.Empty(t, FindAmountsInLine("Matricule 00042"))
	assert.Empty(t, FindAmountsInLine(""))
}

func TestFindValueAfter(t *testing.T) {
	lines := []string{"Salaire brut", "", "2 500,00 1234,00"}
	v, ok := FindValueAfter(lines, 0, DefaultLookahead)
	require.True(t, ok)
	assert.InDelta(t, 1234.00, v, 1e-9)
}

func TestFindValueAfter_SameLineWins(t *testing.T) {
	lines := []string{"Net à payer 1 980,12", "9 999,99"}
	v, ok := FindValueAfter(lines, 0, DefaultLookahead)
	require.True(t, ok)
	assert.InDelta(t, 1980.12, v, 1e-9)
}

func TestFindValueAfter_OutOfWindow(t *testing.T) {
	lines := []string{"Net social", "a", "b", "c", "1 000,00"}
	_, ok := FindValueAfter(lines, 0, DefaultLookahead)
	assert.False(t, ok)

	_, ok = FindValueAfter(lines, 10, DefaultLookahead)
	assert.False(t, ok)
}

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "Conges N-1", FoldAccents("Congés N-1"))
	assert.Equal(t, "cout total", FoldAccents("coût total"))
	assert.Equal(t, "plain", FoldAccents("plain"))
}
