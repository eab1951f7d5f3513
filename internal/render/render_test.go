package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ctastats/internal/aggregate"
	"ctastats/internal/model"
	"ctastats/internal/summary"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func countryMatrix(t *testing.T) aggregate.Matrix {
	t.Helper()

	day := func(year int) time.Time { return time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC) }
	table := model.NewTable([]model.CompanyRecord{
		model.NewCompanyRecord("A", "Sweden", model.StatusTargetsSet, day(2021)),
		model.NewCompanyRecord("B", "Sweden", model.StatusCommitted, day(2021)),
		model.NewCompanyRecord("C", "Japan", model.StatusTargetsSet, day(2020)),
		model.NewCompanyRecord("D", "Brazil", "Removed", day(2022)),
	})
	m, err := aggregate.Pivot(table, model.DimCountry, model.ExpectedStatuses)
	require.NoError(t, err)
	return m
}

func TestChartWritesPNG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Chart(&buf, countryMatrix(t), ChartOptions{Labels: model.StatusLabels, ValueLabels: true})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestChartRejectsEmptyMatrix(t *testing.T) {
	t.Parallel()

	m, err := aggregate.Pivot(model.Table{}, model.DimCountry, model.ExpectedStatuses)
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.ErrorIs(t, Chart(&buf, m, ChartOptions{}), ErrEmptyMatrix)
	assert.Zero(t, buf.Len())
}

func TestChartFilesOnePerPage(t *testing.T) {
	t.Parallel()

	pages, err := countryMatrix(t).Chunk(1)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "charts")
	paths, err := ChartFiles(dir, "country", pages, ChartOptions{Width: 4 * 72, Height: 3 * 72})
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "country-01.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "country-03.png"), paths[2])

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(raw, pngMagic), path)
	}
}

func TestDefaultTitle(t *testing.T) {
	t.Parallel()

	assert.Contains(t, DefaultTitle(model.DimCountry, ""), "per country")
	assert.Equal(t, "(Sweden) Companies with approved and committed targets per year", DefaultTitle(model.DimYear, "Sweden"))
}

func TestSummaryTable(t *testing.T) {
	t.Parallel()

	out := SummaryTable(summary.Summary{
		Country:                "Sweden",
		Total:                  200,
		CountryTotal:           50,
		TargetsSet:             120,
		CountryTargetsSet:      30,
		Committed:              80,
		CountryCommitted:       20,
		CountryShare:           25,
		TargetsSetShare:        60,
		CountryTargetsSetShare: 60,
	})

	for _, want := range []string{"Tot Sweden", "Tot Sweden Valid", "200", "120", "80", "25%", "60%", "% of total"} {
		assert.Contains(t, out, want)
	}
}

func TestMatrixTable(t *testing.T) {
	t.Parallel()

	out := MatrixTable(countryMatrix(t), model.StatusLabels)
	for _, want := range []string{"Country", "SBTi approved", "Committed", "Removed", "Sweden", "Japan", "Brazil", "Total"} {
		assert.Contains(t, out, want)
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "matrix.json")
	require.NoError(t, WriteJSON(path, countryMatrix(t)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded struct {
		Dimension string `json:"dimension"`
		Total     int    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "country", decoded.Dimension)
	assert.Equal(t, 4, decoded.Total)
}

func TestWriteJSONReportsFailures(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.json")
	assert.Error(t, WriteJSON(path, map[string]any{"ch": make(chan int)}))

	assert.Error(t, WriteJSON(filepath.Join(t.TempDir(), "missing", "matrix.json"), 1))

	if _, err := os.Stat("/dev/full"); err == nil {
		assert.Error(t, WriteJSON("/dev/full", countryMatrix(t)))
	}
}

func TestWriteWorkbook(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "matrix.xlsx")
	require.NoError(t, WriteWorkbook(path, "By country", countryMatrix(t), model.StatusLabels))

	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("By country")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Country", "SBTi approved", "Committed", "Removed", "Total"}, rows[0])
	assert.Equal(t, []string{"Sweden", "1", "1", "0", "2"}, rows[1])
	assert.Equal(t, []string{"Brazil", "0", "0", "1", "1"}, rows[3])
}
