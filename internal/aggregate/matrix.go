package aggregate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"ctastats/internal/model"
)

// Matrix is a cross tabulation of record counts: one row per distinct value
// of Dimension, one column per target status. Every cell is present; buckets
// without records hold zero.
type Matrix struct {
	dimension model.Dimension
	columns   []string
	rows      []string
	cells     [][]int
}

// Pivot groups the table by (rowDim, status) and reshapes the counts. The
// expected statuses always become columns, in the given order; statuses
// observed in the data but not expected are appended in first-seen order.
func Pivot(table model.Table, rowDim model.Dimension, expected []model.TargetStatus) (Matrix, error) {
	if !rowDim.Valid() || rowDim == model.DimStatus {
		return Matrix{}, fmt.Errorf("%w: cannot pivot by %q", ErrInvalidDimension, rowDim)
	}

	groups, err := GroupAndCount(table, model.GroupKey{rowDim, model.DimStatus})
	if err != nil {
		return Matrix{}, err
	}

	m := Matrix{dimension: rowDim}
	columnIndex := make(map[string]int)
	for _, status := range expected {
		if _, ok := columnIndex[string(status)]; ok {
			continue
		}
		columnIndex[string(status)] = len(m.columns)
		m.columns = append(m.columns, string(status))
	}
	for _, group := range groups {
		status := group.Values[1]
		if _, ok := columnIndex[status]; !ok {
			columnIndex[status] = len(m.columns)
			m.columns = append(m.columns, status)
		}
	}

	rowIndex := make(map[string]int)
	for _, group := range groups {
		key := group.Values[0]
		index, ok := rowIndex[key]
		if !ok {
			index = len(m.rows)
			rowIndex[key] = index
			m.rows = append(m.rows, key)
			m.cells = append(m.cells, make([]int, len(m.columns)))
		}
		m.cells[index][columnIndex[group.Values[1]]] += group.Count
	}
	return m, nil
}

func (m Matrix) Dimension() model.Dimension {
	return m.dimension
}

func (m Matrix) Len() int {
	return len(m.rows)
}

func (m Matrix) Columns() []string {
	return append([]string(nil), m.columns...)
}

func (m Matrix) Rows() []string {
	return append([]string(nil), m.rows...)
}

func (m Matrix) HasColumn(column string) bool {
	return m.columnIndex(column) >= 0
}

func (m Matrix) Count(row, column string) int {
	r := m.rowIndex(row)
	c := m.columnIndex(column)
	if r < 0 || c < 0 {
		return 0
	}
	return m.cells[r][c]
}

func (m Matrix) Values(row string) []int {
	r := m.rowIndex(row)
	if r < 0 {
		return make([]int, len(m.columns))
	}
	return append([]int(nil), m.cells[r]...)
}

func (m Matrix) RowTotal(row string) int {
	return lo.Sum(m.Values(row))
}

func (m Matrix) ColumnTotal(column string) int {
	c := m.columnIndex(column)
	if c < 0 {
		return 0
	}
	total := 0
	for _, values := range m.cells {
		total += values[c]
	}
	return total
}

func (m Matrix) Total() int {
	total := 0
	for _, values := range m.cells {
		total += lo.Sum(values)
	}
	return total
}

// SortByColumn orders rows by one column's count. Ties keep row keys in
// ascending order.
func (m Matrix) SortByColumn(column string, desc bool) (Matrix, error) {
	c := m.columnIndex(column)
	if c < 0 {
		return Matrix{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	return m.sorted(func(a, b int) bool {
		left, right := m.cells[a][c], m.cells[b][c]
		if left != right {
			if desc {
				return left > right
			}
			return left < right
		}
		return compareKeys(m.rows[a], m.rows[b]) < 0
	}), nil
}

// SortByKey orders rows by their key, numerically when both keys are integers.
func (m Matrix) SortByKey() Matrix {
	return m.sorted(func(a, b int) bool {
		return compareKeys(m.rows[a], m.rows[b]) < 0
	})
}

// Chunk slices rows into contiguous pages of size rows; the last page may be
// shorter. An empty matrix yields no pages.
func (m Matrix) Chunk(size int) ([]Matrix, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	indices := lo.Range(len(m.rows))
	pages := make([]Matrix, 0, (len(m.rows)+size-1)/size)
	for _, chunk := range lo.Chunk(indices, size) {
		pages = append(pages, m.subset(chunk))
	}
	return pages, nil
}

// Rename relabels columns; columns missing from labels keep their name.
func (m Matrix) Rename(labels map[string]string) Matrix {
	out := m.clone()
	for i, column := range out.columns {
		if label, ok := labels[column]; ok {
			out.columns[i] = label
		}
	}
	return out
}

type matrixRow struct {
	Key    string `json:"key"`
	Values []int  `json:"values"`
	Total  int    `json:"total"`
}

type matrixJSON struct {
	Dimension model.Dimension `json:"dimension"`
	Columns   []string        `json:"columns"`
	Rows      []matrixRow     `json:"rows"`
	Total     int             `json:"total"`
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	payload := matrixJSON{
		Dimension: m.dimension,
		Columns:   m.Columns(),
		Rows:      make([]matrixRow, 0, len(m.rows)),
		Total:     m.Total(),
	}
	for i, key := range m.rows {
		payload.Rows = append(payload.Rows, matrixRow{
			Key:    key,
			Values: append([]int(nil), m.cells[i]...),
			Total:  lo.Sum(m.cells[i]),
		})
	}
	return json.Marshal(payload)
}

func (m Matrix) sorted(less func(a, b int) bool) Matrix {
	order := lo.Range(len(m.rows))
	sort.SliceStable(order, func(i, j int) bool {
		return less(order[i], order[j])
	})
	return m.subset(order)
}

func (m Matrix) subset(order []int) Matrix {
	out := Matrix{
		dimension: m.dimension,
		columns:   m.Columns(),
		rows:      make([]string, 0, len(order)),
		cells:     make([][]int, 0, len(order)),
	}
	for _, index := range order {
		out.rows = append(out.rows, m.rows[index])
		out.cells = append(out.cells, append([]int(nil), m.cells[index]...))
	}
	return out
}

func (m Matrix) clone() Matrix {
	return m.subset(lo.Range(len(m.rows)))
}

func (m Matrix) rowIndex(row string) int {
	return lo.IndexOf(m.rows, row)
}

func (m Matrix) columnIndex(column string) int {
	return lo.IndexOf(m.columns, column)
}

func compareKeys(a, b string) int {
	left, errLeft := strconv.Atoi(a)
	right, errRight := strconv.Atoi(b)
	if errLeft == nil && errRight == nil {
		switch {
		case left < right:
			return -1
		case left > right:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
