package sheet

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ctastats/internal/model"
)

// DateLayout is day/month/year; leading zeros are optional.
const DateLayout = "2/1/2006"

type DatePolicy string

const (
	// DatePolicyStrict fails the whole run on the first malformed date.
	DatePolicyStrict DatePolicy = "strict"
	// DatePolicyLenient drops rows with malformed dates and logs each one.
	DatePolicyLenient DatePolicy = "lenient"
)

func ParseDatePolicy(value string) (DatePolicy, error) {
	switch DatePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", DatePolicyStrict:
		return DatePolicyStrict, nil
	case DatePolicyLenient:
		return DatePolicyLenient, nil
	default:
		return "", fmt.Errorf("unknown date policy: %s", value)
	}
}

type Options struct {
	Sheet      string
	DatePolicy DatePolicy
	Logger     *zap.Logger
}

type RowIssue struct {
	Row   int
	Value string
}

// Report accounts for every data row below the header:
// Raw == Retained + DroppedMissingDate + DroppedBadDate.
type Report struct {
	Raw                int
	Retained           int
	DroppedMissingDate int
	DroppedBadDate     int
	BadDates           []RowIssue
}

func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(value))
}

func Normalize(raw []byte, opts Options) (model.Table, Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy, err := ParseDatePolicy(string(opts.DatePolicy))
	if err != nil {
		return model.Table{}, Report{}, fmt.Errorf("sheet: %w", err)
	}

	frame, err := ReadFrame(raw, opts.Sheet)
	if err != nil {
		return model.Table{}, Report{}, err
	}

	report := Report{Raw: len(frame.Rows)}
	records := make([]model.CompanyRecord, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		dateText := frame.Cell(row, ColumnDate.Canonical)
		if dateText == "" {
			report.DroppedMissingDate++
			continue
		}

		date, err := ParseDate(dateText)
		if err != nil {
			if policy == DatePolicyStrict {
				return model.Table{}, Report{}, &ParseError{
					Kind:   KindDateFormat,
					Column: ColumnDate.Vendor,
					Row:    row.Number,
					Value:  dateText,
					Err:    err,
				}
			}
			logger.Warn("dropping row with malformed date",
				zap.Int("row", row.Number),
				zap.String("value", dateText),
			)
			report.DroppedBadDate++
			report.BadDates = append(report.BadDates, RowIssue{Row: row.Number, Value: dateText})
			continue
		}

		records = append(records, model.NewCompanyRecord(
			frame.Cell(row, ColumnCompanyName.Canonical),
			frame.Cell(row, ColumnCountry.Canonical),
			model.TargetStatus(frame.Cell(row, ColumnTargetStatus.Canonical)),
			date,
		))
	}
	report.Retained = len(records)

	logger.Debug("normalized workbook",
		zap.String("sheet", frame.Sheet),
		zap.Int("raw", report.Raw),
		zap.Int("retained", report.Retained),
		zap.Int("dropped_missing_date", report.DroppedMissingDate),
		zap.Int("dropped_bad_date", report.DroppedBadDate),
	)
	return model.Table{Records: records}, report, nil
}
