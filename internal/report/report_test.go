package report_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/report"
)

func sample() domain.Records {
	return domain.Records{
		{Domain: "a.com", Status: domain.StatusAvailable},
		{Domain: "b.com", Status: domain.StatusUnavailable},
		{Domain: "c.com", Status: domain.StatusAvailable},
		{Domain: "d.com", Status: domain.StatusError},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []report.StatusCount{
		{Status: domain.StatusAvailable, Count: 2},
		{Status: domain.StatusUnavailable, Count: 1},
		{Status: domain.StatusUnknown, Count: 0},
		{Status: domain.StatusError, Count: 1},
	}, report.Summarize(sample()))
}

func TestWrite_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, report.FormatTable, sample()))

	out := buf.String()
	assert.Contains(t, out, "DOMAIN")
	assert.Contains(t, out, "b.com")
	assert.Contains(t, out, "unavailable")
	assert.Contains(t, out, "TOTAL: 4")
}

func TestWrite_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, report.FormatJSON, sample()))

	var got domain.Records
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sample(), got)

	buf.Reset()
	require.NoError(t, report.WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWrite_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, report.FormatYAML, sample()[:1]))
	assert.Equal(t, "- domain: a.com\n  status: available\n", buf.String())

	var got []map[string]string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "a.com", got[0]["domain"])
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := report.Write(&bytes.Buffer{}, "csv", sample())
	assert.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, report.WriteXLSX(path, sample()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(report.ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Domain", "Status"}, rows[0])
	assert.Equal(t, []string{"d.com", "error"}, rows[4])

	summary, err := f.GetRows(report.SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"available", "2"}, summary[1])
	assert.Equal(t, []string{"total", "4"}, summary[len(summary)-1])
}
