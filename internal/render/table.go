package render

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ctastats/internal/aggregate"
	"ctastats/internal/summary"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// SummaryTable lays out the headline counts: one column per population, one
// row per metric.
func SummaryTable(s summary.Summary) string {
	country := s.Country
	if country == "" {
		country = "-"
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("CTA", "Tot Companies", "Tot "+country, "Tot Valid", "Tot "+country+" Valid").
		Rows(
			[]string{"num", strconv.Itoa(s.Total), strconv.Itoa(s.CountryTotal), strconv.Itoa(s.TargetsSet), strconv.Itoa(s.CountryTargetsSet)},
			[]string{"committed", strconv.Itoa(s.Committed), strconv.Itoa(s.CountryCommitted), "-", "-"},
			[]string{"% of total", "-", percent(s.CountryShare), percent(s.TargetsSetShare), percent(s.CountryTargetsSetShare)},
		).
		StyleFunc(styleCell)
	return t.Render()
}

// MatrixTable prints a matrix with a total column and a total row.
func MatrixTable(m aggregate.Matrix, labels map[string]string) string {
	columns := m.Columns()
	headers := make([]string, 0, len(columns)+2)
	headers = append(headers, axisLabel(m.Dimension()))
	for _, column := range columns {
		headers = append(headers, label(column, labels))
	}
	headers = append(headers, "Total")

	rows := make([][]string, 0, m.Len()+1)
	for _, key := range m.Rows() {
		row := []string{key}
		for _, value := range m.Values(key) {
			row = append(row, strconv.Itoa(value))
		}
		rows = append(rows, append(row, strconv.Itoa(m.RowTotal(key))))
	}
	totals := []string{"Total"}
	for _, column := range columns {
		totals = append(totals, strconv.Itoa(m.ColumnTotal(column)))
	}
	rows = append(rows, append(totals, strconv.Itoa(m.Total())))

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(styleCell)
	return t.Render()
}

func styleCell(row, col int) lipgloss.Style {
	switch {
	case row == table.HeaderRow:
		return headerStyle
	case col == 0:
		return cellStyle
	default:
		return numberStyle
	}
}

func percent(value float64) string {
	return fmt.Sprintf("%d%%", int(value))
}
