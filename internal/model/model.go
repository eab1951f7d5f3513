package model

import (
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"
)

type TargetStatus string

const (
	StatusTargetsSet TargetStatus = "Targets Set"
	StatusCommitted  TargetStatus = "Committed"
)

// ExpectedStatuses are the status columns every matrix carries, in display order.
var ExpectedStatuses = []TargetStatus{StatusTargetsSet, StatusCommitted}

var StatusLabels = map[string]string{
	string(StatusTargetsSet): "SBTi approved",
	string(StatusCommitted):  "Committed",
}

type Dimension string

const (
	DimCountry Dimension = "country"
	DimYear    Dimension = "year"
	DimStatus  Dimension = "target_status"
)

func (d Dimension) Value(record CompanyRecord) string {
	switch d {
	case DimCountry:
		return record.Country
	case DimYear:
		return strconv.Itoa(record.Year)
	case DimStatus:
		return string(record.Status)
	default:
		return ""
	}
}

func (d Dimension) Valid() bool {
	switch d {
	case DimCountry, DimYear, DimStatus:
		return true
	default:
		return false
	}
}

type GroupKey []Dimension

type CompanyRecord struct {
	CompanyName string
	Country     string
	Status      TargetStatus
	Date        time.Time
	Year        int
}

// NewCompanyRecord is the only place Year is set; it always mirrors Date.
func NewCompanyRecord(name, country string, status TargetStatus, date time.Time) CompanyRecord {
	return CompanyRecord{
		CompanyName: name,
		Country:     country,
		Status:      status,
		Date:        date,
		Year:        date.Year(),
	}
}

type Table struct {
	Records []CompanyRecord
}

func NewTable(records []CompanyRecord) Table {
	copied := make([]CompanyRecord, len(records))
	copy(copied, records)
	return Table{Records: copied}
}

func (t Table) Len() int {
	return len(t.Records)
}

func (t Table) Countries() []string {
	countries := lo.Uniq(lo.Map(t.Records, func(record CompanyRecord, _ int) string {
		return record.Country
	}))
	sort.Strings(countries)
	return countries
}

func (t Table) HasCountry(country string) bool {
	return lo.ContainsBy(t.Records, func(record CompanyRecord) bool {
		return record.Country == country
	})
}

func (t Table) FilterCountry(country string) Table {
	return Table{Records: lo.Filter(t.Records, func(record CompanyRecord, _ int) bool {
		return record.Country == country
	})}
}

func (t Table) FilterStatus(status TargetStatus) Table {
	return Table{Records: lo.Filter(t.Records, func(record CompanyRecord, _ int) bool {
		return record.Status == status
	})}
}
