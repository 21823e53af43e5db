package extract

import (
	"errors"
	"testing"

	"github.com/dgallion1/payrecon/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const silaeSlip = `BULLETIN DE PAIE
Monsieur DUPONT Jean
Salaire de base 151,67 16,4800 2 500,00
SALAIRE BRUT 2 500,00
Total des retenues 545,10
Charges patronales 1 050,00
Montant net social 1 960,40
Montant net imposable 2 010,15
NET A PAYER AVANT IMPOT
1 954,90
Net à payer 1 890,00
Coût global 3 550,00
Congés N-1
Acquis : 25,00
Pris : 10,00
Solde : 15,00
Congés N
Acquis 12,50 Pris 0 Solde 12,50`

func TestExtract_SourceADialect(t *testing.T) {
	res, err := Extract(silaeSlip, schema.SourceA)
	require.NoError(t, err)

	want := map[string]float64{
		"gross_salary":           2500.00,
		"employee_contrib_total": 545.10,
		"employer_contrib_total": 1050.00,
		"net_social":             1960.40,
		"net_taxable":            2010.15,
		"net_payable":            1890.00,
		"employer_total_cost":    3550.00,
		"leave_n1_acquired":      25,
		"leave_n1_taken":         10,
		"leave_n1_balance":       15,
		// The first line satisfying the current-year anchor is "Congés N-1".
		"leave_n_acquired":       25,
		"leave_n_taken":          10,
		"leave_n_balance":        15,
	}
	for field, v := range want {
		got, ok := res.Value(field)
		if assert.True(t, ok, "field %s not found", field) {
			assert.InDelta(t, v, got, 1e-9, field)
		}
	}
	assert.Empty(t, res.Missing)
	assert.Empty(t, res.MissingBlocking)
}

func TestExtract_GrossWithoutNetPayable(t *testing.T) {
	res, err := Extract("Salaire brut ... 2500,00", schema.SourceA)
	require.NoError(t, err)

	v, ok := res.Value("gross_salary")
	require.True(t, ok)
	assert.InDelta(t, 2500.00, v, 1e-9)

	assert.Contains(t, res.Missing, "net_payable")
	assert.Contains(t, res.MissingBlocking, "net_payable")
	assert.NotContains(t, res.Missing, "gross_salary")
}

func TestExtract_SourceBDialect(t *testing.T) {
	text := "Cot. salariales 410,00\nCot. patronales 980,00\nCoût employeur 3 400,00\nNet payé 1 700,00"
	res, err := Extract(text, schema.SourceB)
	require.NoError(t, err)

	for field, want := range map[string]float64{
		"employee_contrib_total": 410,
		"employer_contrib_total": 980,
		"employer_total_cost":    3400,
		"net_payable":            1700,
	} {
		got, ok := res.Value(field)
		require.True(t, ok, field)
		assert.InDelta(t, want, got, 1e-9, field)
	}

	// Source A has no "cot. salariales" pattern.
	resA, err := Extract(text, schema.SourceA)
	require.NoError(t, err)
	_, ok := resA.Value("employee_contrib_total")
	assert.False(t, ok)
}

func TestExtract_PatternOrderWins(t *testing.T) {
	// "montant net imposable" is tried before the bare "net imposable".
	text := "Net imposable 100,00\nMontant net imposable 200,00"
	res, err := Extract(text, schema.SourceA)
	require.NoError(t, err)
	v, _ := res.Value("net_taxable")
	assert.InDelta(t, 200.00, v, 1e-9)
}

func TestExtract_LabelWithoutValueFallsThrough(t *testing.T) {
	// The first "salaire brut" line has no amount within reach; the second does.
	text := "Salaire brut\nx\ny\nz\nw\nSalaire brut 1 234,56"
	res, err := Extract(text, schema.SourceA)
	require.NoError(t, err)
	v, ok := res.Value("gross_salary")
	require.True(t, ok)
	assert.InDelta(t, 1234.56, v, 1e-9)
}

func TestExtract_LeaveAnchorsAreAccentInsensitive(t *testing.T) {
	res, err := Extract("CONGES N-1 acquis 30 pris 5 solde 25", schema.SourceB)
	require.NoError(t, err)
	v, ok := res.Value("leave_n1_balance")
	require.True(t, ok)
	assert.InDelta(t, 25, v, 1e-9)

	res, err = Extract("Congés N: acquis: 2,08", schema.SourceB)
	require.NoError(t, err)
	v, ok = res.Value("leave_n_acquired")
	require.True(t, ok)
	assert.InDelta(t, 2.08, v, 1e-9)

	_, ok = res.Value("leave_n_taken")
	assert.False(t, ok)
	assert.Contains(t, res.Missing, "leave_n_taken")
	assert.NotContains(t, res.MissingBlocking, "leave_n_taken")
}

func TestExtract_CurrentAnchorMatchesPreviousYearLine(t *testing.T) {
	res, err := Extract("Congés N-1 Acquis 25,00 Pris 10,00 Solde 15,00", schema.SourceA)
	require.NoError(t, err)

	for _, period := range []string{"n1", "n"} {
		for field, want := range map[string]float64{"acquired": 25, "taken": 10, "balance": 15} {
			name := "leave_" + period + "_" + field
			v, ok := res.Value(name)
			if assert.True(t, ok, name) {
				assert.InDelta(t, want, v, 1e-9, name)
			}
		}
	}
}

func TestExtract_CurrentAnchorSkipsN1Spelling(t *testing.T) {
	res, err := Extract("Congés N1 acquis 30", schema.SourceA)
	require.NoError(t, err)

	_, ok := res.Value("leave_n1_acquired")
	assert.True(t, ok)
	_, ok = res.Value("leave_n_acquired")
	assert.False(t, ok)
}

func TestExtract_EmptyText(t *testing.T) {
	res, err := Extract("", schema.SourceA)
	require.NoError(t, err)

	names := schema.Default().Names()
	assert.Len(t, res.Values, len(names))
	assert.ElementsMatch(t, names, res.Missing)
	assert.Len(t, res.MissingBlocking, 7)
}

func TestExtract_Invariants(t *testing.T) {
	for _, text := range []string{"", silaeSlip, "Salaire brut 2 500,00", "Congés N acquis 1"} {
		for _, src := range schema.Sources {
			res, err := Extract(text, src)
			require.NoError(t, err)

			for _, name := range schema.Default().Names() {
				_, present := res.Values[name]
				assert.True(t, present, "values must contain %s", name)
			}
			for _, m := range res.Missing {
				v, present := res.Values[m]
				assert.True(t, present)
				assert.Nil(t, v, "missing field %s must map to nil", m)
			}
			assert.Subset(t, res.Missing, res.MissingBlocking)
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	first, err := Extract(silaeSlip, schema.SourceB)
	require.NoError(t, err)
	second, err := Extract(silaeSlip, schema.SourceB)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtract_UnknownSource(t *testing.T) {
	_, err := Extract(silaeSlip, schema.Source("sage"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUnknownSource))
}

func TestNoDocumentResult(t *testing.T) {
	res := NoDocumentResult()
	assert.Empty(t, res.Values)
	assert.Equal(t, []string{NoDocument}, res.Missing)
	assert.Equal(t, []string{NoDocument}, res.MissingBlocking)
	assert.False(t, res.HasDocument())

	full, err := Extract("", schema.SourceA)
	require.NoError(t, err)
	assert.True(t, full.HasDocument())
}

func TestExtractor_CustomSchema(t *testing.T) {
	s, err := schema.Parse([]byte("fields:\n  - name: bonus\n    type: amount\n    sources:\n      a: ['prime']\n"))
	require.NoError(t, err)

	res, err := New(s).Extract("Prime exceptionnelle 300,00", schema.SourceA)
	require.NoError(t, err)
	v, ok := res.Value("bonus")
	require.True(t, ok)
	assert.InDelta(t, 300.00, v, 1e-9)

	res, err = New(s).Extract("Prime exceptionnelle 300,00", schema.SourceB)
	require.NoError(t, err)
	assert.Equal(t, []string{"bonus"}, res.Missing)
	assert.Empty(t, res.MissingBlocking)
}
