package sheet

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctastats/internal/model"
	"ctastats/internal/sheet/sheettest"
)

func TestParseDateYear(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Time{
		"01/03/2021":   time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
		"1/3/2021":     time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
		"31/12/2015":   time.Date(2015, time.December, 31, 0, 0, 0, 0, time.UTC),
		" 29/02/2024 ": time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got, err := ParseDate(input)
		require.NoError(t, err, input)
		assert.True(t, want.Equal(got), "%s: got %v", input, got)

		record := model.NewCompanyRecord("X", "Y", model.StatusCommitted, got)
		assert.Equal(t, want.Year(), record.Year)
	}

	for _, bad := range []string{"2021-03-01", "03/15/2021", "31/02/2021", "yesterday"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeScenario(t *testing.T) {
	t.Parallel()

	table, report, err := Normalize(sheettest.Scenario(t), Options{})
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, Report{Raw: 3, Retained: 2, DroppedMissingDate: 1}, report)

	first := table.Records[0]
	assert.Equal(t, "A", first.CompanyName)
	assert.Equal(t, "Sweden", first.Country)
	assert.Equal(t, model.StatusTargetsSet, first.Status)
	assert.Equal(t, 2021, first.Year)
	assert.Equal(t, time.March, first.Date.Month())

	for _, record := range table.Records {
		assert.NotEqual(t, "C", record.CompanyName)
	}
}

func TestNormalizeAccountsForEveryRow(t *testing.T) {
	t.Parallel()

	raw := sheettest.Workbook(t,
		sheettest.Header,
		sheettest.Company("A", "Sweden", "Targets Set", "01/03/2021"),
		sheettest.Company("B", "Norway", "Committed", "   "),
		sheettest.Company("C", "Norway", "Committed", "2021-03-01"),
		sheettest.Company("D", "Denmark", "Committed", "5/7/2019"),
	)

	_, report, err := Normalize(raw, Options{DatePolicy: DatePolicyLenient})
	require.NoError(t, err)
	assert.Equal(t, report.Raw, report.Retained+report.DroppedMissingDate+report.DroppedBadDate)
	assert.Equal(t, 2, report.Retained)
	assert.Equal(t, 1, report.DroppedBadDate)
	assert.Equal(t, []RowIssue{{Row: 4, Value: "2021-03-01"}}, report.BadDates)
}

func TestNormalizeStrictDateFailure(t *testing.T) {
	t.Parallel()

	raw := sheettest.Workbook(t,
		sheettest.Header,
		sheettest.Company("A", "Sweden", "Targets Set", "01/03/2021"),
		sheettest.Company("B", "Sweden", "Committed", "March 2021"),
	)

	table, _, err := Normalize(raw, Options{DatePolicy: DatePolicyStrict})
	require.Error(t, err)
	assert.Zero(t, table.Len())
	assert.True(t, errors.Is(err, ErrDateFormat))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 3, parseErr.Row)
	assert.Equal(t, "March 2021", parseErr.Value)
}

func TestNormalizeMissingColumn(t *testing.T) {
	t.Parallel()

	raw := sheettest.Workbook(t,
		[]any{"Company Name", "Country", "Near term - Target Status", "Date"},
		[]any{"A", "Sweden", "Targets Set", "01/03/2021"},
	)

	_, _, err := Normalize(raw, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "Location", parseErr.Column)
}

func TestNormalizeDuplicateCanonicalColumn(t *testing.T) {
	t.Parallel()

	raw := sheettest.Workbook(t,
		[]any{"Company Name", "Location", "country", "Near term - Target Status", "Date"},
		[]any{"A", "Sweden", "SE", "Targets Set", "01/03/2021"},
	)

	_, _, err := Normalize(raw, Options{})
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestNormalizeRepeatedUnrelatedColumn(t *testing.T) {
	t.Parallel()

	raw := sheettest.Workbook(t,
		[]any{"Company Name", "Sector", "Location", "Sector", "Near term - Target Status", "Date"},
		[]any{"A", "Banks", "Sweden", "Insurance", "Targets Set", "01/03/2021"},
	)

	table, report, err := Normalize(raw, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Sweden", table.Records[0].Country)
	assert.Equal(t, 1, report.Retained)

	frame, err := ReadFrame(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "Banks", frame.Cell(frame.Rows[0], "Sector"))
}

func TestNormalizeRejectsUnknownDatePolicy(t *testing.T) {
	t.Parallel()

	raw := sheettest.Workbook(t,
		sheettest.Header,
		sheettest.Company("A", "Sweden", "Targets Set", "2021-03-01"),
	)

	table, report, err := Normalize(raw, Options{DatePolicy: "ignore"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown date policy")
	assert.Zero(t, table.Len())
	assert.Zero(t, report.DroppedBadDate)

	_, _, err = Normalize(raw, Options{DatePolicy: "Lenient"})
	assert.NoError(t, err)
}

func TestNormalizeHeaderIsTolerant(t *testing.T) {
	t.Parallel()

	raw := sheettest.Workbook(t,
		[]any{},
		[]any{" company name ", "LOCATION", "near term - target status", "Date "},
		[]any{"A", "Sweden", "Targets Set", "01/03/2021"},
	)

	table, report, err := Normalize(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, report.Raw)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := Normalize([]byte("<html>maintenance</html>"), Options{})
	assert.ErrorIs(t, err, ErrWorkbook)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	raw := sheettest.Scenario(t)
	first, firstReport, err := Normalize(raw, Options{})
	require.NoError(t, err)
	second, secondReport, err := Normalize(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstReport, secondReport)
}

func TestReadFrameRenamesVendorColumns(t *testing.T) {
	t.Parallel()

	frame, err := ReadFrame(sheettest.Scenario(t), "")
	require.NoError(t, err)

	assert.Equal(t, sheettest.SheetName, frame.Sheet)
	assert.Contains(t, frame.Columns, "target_status")
	assert.Contains(t, frame.Columns, "country")
	assert.NotContains(t, frame.Columns, "Location")
	assert.Equal(t, "Sweden", frame.Cell(frame.Rows[0], ColumnCountry.Canonical))
}

func TestReadFrameUnknownSheet(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(sheettest.Scenario(t), "Targets")
	assert.ErrorIs(t, err, ErrWorkbook)
}

func TestParseDatePolicy(t *testing.T) {
	t.Parallel()

	policy, err := ParseDatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DatePolicyStrict, policy)

	policy, err = ParseDatePolicy("Lenient")
	require.NoError(t, err)
	assert.Equal(t, DatePolicyLenient, policy)

	_, err = ParseDatePolicy("ignore")
	assert.Error(t, err)
}
