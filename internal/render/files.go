package render

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"ctastats/internal/aggregate"
)

func WriteJSON(path string, value any) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("render: close %s: %w", path, closeErr)
		}
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// WriteWorkbook exports a matrix as a single-sheet xlsx file with a header
// row, one row per key and the status counts in column order.
func WriteWorkbook(path, sheetName string, m aggregate.Matrix, labels map[string]string) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName(book.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	header := []any{axisLabel(m.Dimension())}
	for _, column := range m.Columns() {
		header = append(header, label(column, labels))
	}
	header = append(header, "Total")
	if err := book.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	for i, key := range m.Rows() {
		row := []any{key}
		for _, value := range m.Values(key) {
			row = append(row, value)
		}
		row = append(row, m.RowTotal(key))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if err := book.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}

	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("render: save %s: %w", path, err)
	}
	return nil
}
