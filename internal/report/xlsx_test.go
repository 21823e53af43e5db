package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	rows := sampleRows(t)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows, Options{SourceA: "silae.pdf", SourceB: "wagyz.pdf"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, DetailSheet}, f.GetSheetList())

	title, err := f.GetCellValue(SummarySheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Rapprochement des bulletins de paie", title)
	employees, _ := f.GetCellValue(SummarySheet, "B5")
	assert.Equal(t, "2", employees)
	srcA, _ := f.GetCellValue(SummarySheet, "B2")
	assert.Equal(t, "silae.pdf", srcA)

	detail, err := f.GetRows(DetailSheet)
	require.NoError(t, err)
	require.NotEmpty(t, detail)
	assert.Equal(t, detailHeaders, detail[0])

	fieldLines := 0
	for _, r := range rows {
		fieldLines += len(r.Comparison)
	}
	assert.Len(t, detail, fieldLines+1)

	var net []string
	for _, line := range detail[1:] {
		if len(line) >= 8 && line[0] == "DUPONT Jean (E042)" && line[2] == "Net à payer" {
			net = line
		}
	}
	require.NotNil(t, net, "expected a net pay line for DUPONT")
	assert.Equal(t, "oui", net[3])
	assert.Equal(t, "1890", net[4])
	assert.Equal(t, "1880", net[5])
	assert.Equal(t, "-10", net[6])
	assert.Equal(t, "Écart", net[7])
}

func TestWriteXLSX_OnlyIssuesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, Options{OnlyIssues: true}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	detail, err := f.GetRows(DetailSheet)
	require.NoError(t, err)
	assert.Len(t, detail, 1)
	srcB, _ := f.GetCellValue(SummarySheet, "B3")
	assert.Equal(t, "B", srcB)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteXLSX_WriterErrorIsReturned(t *testing.T) {
	err := WriteXLSX(failingWriter{}, sampleRows(t), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx write")
	assert.Contains(t, err.Error(), "disk full")
}
