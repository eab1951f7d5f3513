package sheet

import (
	"errors"
	"fmt"
)

var (
	ErrWorkbook        = errors.New("sheet: unreadable workbook")
	ErrMissingColumn   = errors.New("sheet: missing column")
	ErrDuplicateColumn = errors.New("sheet: duplicate column")
	ErrDateFormat      = errors.New("sheet: date format")
)

type Kind string

const (
	KindWorkbook        Kind = "workbook"
	KindMissingColumn   Kind = "missing_column"
	KindDuplicateColumn Kind = "duplicate_column"
	KindDateFormat      Kind = "date_format"
)

// ParseError carries the location of a schema or row problem. Row is the
// 1-based spreadsheet row number, zero when the problem is not row-bound.
type ParseError struct {
	Kind   Kind
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindMissingColumn:
		return fmt.Sprintf("sheet: missing column %q", e.Column)
	case KindDuplicateColumn:
		return fmt.Sprintf("sheet: column %q appears more than once", e.Column)
	case KindDateFormat:
		return fmt.Sprintf("sheet: row %d: %s %q does not match day/month/year", e.Row, e.Column, e.Value)
	default:
		if e.Err != nil {
			return fmt.Sprintf("sheet: unreadable workbook: %v", e.Err)
		}
		return "sheet: unreadable workbook"
	}
}

func (e *ParseError) Is(target error) bool {
	switch e.Kind {
	case KindWorkbook:
		return target == ErrWorkbook
	case KindMissingColumn:
		return target == ErrMissingColumn
	case KindDuplicateColumn:
		return target == ErrDuplicateColumn
	case KindDateFormat:
		return target == ErrDateFormat
	default:
		return false
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
