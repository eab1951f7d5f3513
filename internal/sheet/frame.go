package sheet

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column pairs the header text used by the publisher with the name the rest
// of the module refers to.
type Column struct {
	Vendor    string
	Canonical string
}

var (
	ColumnCompanyName  = Column{Vendor: "Company Name", Canonical: "company_name"}
	ColumnCountry      = Column{Vendor: "Location", Canonical: "country"}
	ColumnTargetStatus = Column{Vendor: "Near term - Target Status", Canonical: "target_status"}
	ColumnDate         = Column{Vendor: "Date", Canonical: "date"}
)

var RequiredColumns = []Column{ColumnCompanyName, ColumnCountry, ColumnTargetStatus, ColumnDate}

type Row struct {
	Number int
	Cells  []string
}

type Frame struct {
	Sheet     string
	HeaderRow int
	Columns   []string
	Rows      []Row

	index map[string]int
}

func (f Frame) Index(canonical string) (int, bool) {
	index, ok := f.index[strings.ToLower(canonical)]
	return index, ok
}

func (f Frame) Cell(row Row, canonical string) string {
	index, ok := f.Index(canonical)
	if !ok || index >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[index])
}

// ReadFrame loads one sheet (the first when name is empty), renames the
// vendor headers to canonical names and checks the expected schema.
func ReadFrame(raw []byte, name string) (Frame, error) {
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return Frame{}, &ParseError{Kind: KindWorkbook, Err: err}
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return Frame{}, &ParseError{Kind: KindWorkbook, Err: fmt.Errorf("no sheets")}
	}
	if strings.TrimSpace(name) == "" {
		name = sheets[0]
	}
	if index, err := book.GetSheetIndex(name); err != nil || index < 0 {
		return Frame{}, &ParseError{Kind: KindWorkbook, Err: fmt.Errorf("sheet %q not found", name)}
	}

	rows, err := book.GetRows(name)
	if err != nil {
		return Frame{}, &ParseError{Kind: KindWorkbook, Err: err}
	}

	headerAt := -1
	for i, row := range rows {
		if !isBlank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return Frame{}, &ParseError{Kind: KindMissingColumn, Column: RequiredColumns[0].Vendor}
	}

	columns, index, err := canonicalHeader(rows[headerAt])
	if err != nil {
		return Frame{}, err
	}

	frame := Frame{
		Sheet:     name,
		HeaderRow: headerAt + 1,
		Columns:   columns,
		index:     index,
	}
	for i := headerAt + 1; i < len(rows); i++ {
		frame.Rows = append(frame.Rows, Row{Number: i + 1, Cells: rows[i]})
	}
	return frame, nil
}

func canonicalHeader(header []string) ([]string, map[string]int, error) {
	renames := make(map[string]string, len(RequiredColumns))
	required := make(map[string]struct{}, len(RequiredColumns))
	for _, column := range RequiredColumns {
		renames[strings.ToLower(column.Vendor)] = column.Canonical
		required[column.Canonical] = struct{}{}
	}

	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	seen := make(map[string]struct{}, len(RequiredColumns))
	for i, value := range header {
		name := strings.TrimSpace(value)
		if canonical, ok := renames[strings.ToLower(name)]; ok {
			name = canonical
			seen[canonical] = struct{}{}
		}
		columns[i] = name
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, exists := index[key]; exists {
			if _, ok := required[key]; ok {
				return nil, nil, &ParseError{Kind: KindDuplicateColumn, Column: name}
			}
			// Repeated unrelated headers resolve to their first occurrence.
			continue
		}
		index[key] = i
	}

	for _, column := range RequiredColumns {
		if _, ok := seen[column.Canonical]; !ok {
			return nil, nil, &ParseError{Kind: KindMissingColumn, Column: column.Vendor}
		}
	}
	return columns, index, nil
}

func isBlank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
