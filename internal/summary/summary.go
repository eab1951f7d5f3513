package summary

import (
	"ctastats/internal/aggregate"
	"ctastats/internal/model"
)

// Summary holds the headline numbers for the whole table and for one
// country. Committed counts everything that has not had targets validated.
type Summary struct {
	Country                string  `json:"country"`
	Total                  int     `json:"total"`
	CountryTotal           int     `json:"country_total"`
	TargetsSet             int     `json:"targets_set"`
	CountryTargetsSet      int     `json:"country_targets_set"`
	Committed              int     `json:"committed"`
	CountryCommitted       int     `json:"country_committed"`
	CountryShare           float64 `json:"country_share"`
	TargetsSetShare        float64 `json:"targets_set_share"`
	CountryTargetsSetShare float64 `json:"country_targets_set_share"`
}

func Compute(table model.Table, country string) Summary {
	local := table.FilterCountry(country)

	s := Summary{
		Country:           country,
		Total:             table.Len(),
		CountryTotal:      local.Len(),
		TargetsSet:        table.FilterStatus(model.StatusTargetsSet).Len(),
		CountryTargetsSet: local.FilterStatus(model.StatusTargetsSet).Len(),
	}
	s.Committed = s.Total - s.TargetsSet
	s.CountryCommitted = s.CountryTotal - s.CountryTargetsSet
	s.CountryShare = percent(s.CountryTotal, s.Total)
	s.TargetsSetShare = percent(s.TargetsSet, s.Total)
	s.CountryTargetsSetShare = percent(s.CountryTargetsSet, s.CountryTotal)
	return s
}

// PerYear counts one country's companies per submission year, optionally
// restricted to a single status. Rows are in ascending year order.
func PerYear(table model.Table, country string, status *model.TargetStatus) (aggregate.Matrix, error) {
	subset := table.FilterCountry(country)
	if status != nil {
		subset = subset.FilterStatus(*status)
	}
	m, err := aggregate.Pivot(subset, model.DimYear, model.ExpectedStatuses)
	if err != nil {
		return aggregate.Matrix{}, err
	}
	return m.SortByKey(), nil
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}
