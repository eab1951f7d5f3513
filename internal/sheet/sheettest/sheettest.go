// Package sheettest builds small CTA workbooks for tests.
package sheettest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Sheet1"

var Header = []any{"Company Name", "ISIN", "Location", "Region", "Near term - Target Status", "Date"}

func Company(name, country, status, date string) []any {
	return []any{name, "", country, "", status, date}
}

// Workbook writes rows (header included) to the first sheet of a new xlsx file.
func Workbook(t testing.TB, rows ...[]any) []byte {
	t.Helper()

	book := excelize.NewFile()
	defer book.Close()

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(SheetName, cell, &rows[i]))
	}

	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// Scenario is the three-company workbook used across packages: two Swedish
// companies with dates and a Norwegian one without.
func Scenario(t testing.TB) []byte {
	t.Helper()
	return Workbook(t,
		Header,
		Company("A", "Sweden", "Targets Set", "01/03/2021"),
		Company("B", "Sweden", "Committed", "15/06/2021"),
		Company("C", "Norway", "Targets Set", ""),
	)
}
