package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"ctastats/internal/model"
)

var ErrInvalidParams = errors.New("pipeline: invalid params")

type GroupBy string

const (
	GroupByCountry GroupBy = "country"
	GroupByYear    GroupBy = "year"
)

const DefaultRowsPerPage = 15

func ParseGroupBy(value string) (GroupBy, error) {
	switch GroupBy(strings.ToLower(strings.TrimSpace(value))) {
	case "", GroupByCountry:
		return GroupByCountry, nil
	case GroupByYear:
		return GroupByYear, nil
	default:
		return "", fmt.Errorf("%w: unknown group_by %q", ErrInvalidParams, value)
	}
}

// Params selects the view. RowsPerPage zero means the default, which is
// capped at the number of countries; explicit values are never capped.
type Params struct {
	GroupBy     GroupBy `json:"group_by"`
	Country     string  `json:"country,omitempty"`
	RowsPerPage int     `json:"rows_per_page,omitempty"`
}

// Resolve checks the params against the table and fills in defaults. The
// country only has to exist for the per-year view; the country view passes
// it through to the summary, which reports zeros for an absent country.
func (p Params) Resolve(table model.Table) (Params, error) {
	groupBy, err := ParseGroupBy(string(p.GroupBy))
	if err != nil {
		return Params{}, err
	}
	p.GroupBy = groupBy
	p.Country = strings.TrimSpace(p.Country)

	switch p.GroupBy {
	case GroupByYear:
		if p.Country == "" {
			return Params{}, fmt.Errorf("%w: country is required when grouping by year", ErrInvalidParams)
		}
		if !table.HasCountry(p.Country) {
			return Params{}, fmt.Errorf("%w: unknown country %q", ErrInvalidParams, p.Country)
		}
		p.RowsPerPage = 0
	case GroupByCountry:
		countries := len(table.Countries())
		switch {
		case p.RowsPerPage == 0:
			p.RowsPerPage = min(DefaultRowsPerPage, max(countries, 1))
		case p.RowsPerPage < 1 || (countries > 0 && p.RowsPerPage > countries):
			return Params{}, fmt.Errorf("%w: rows_per_page %d outside [1, %d]", ErrInvalidParams, p.RowsPerPage, countries)
		}
	}
	return p, nil
}
