package aggregate

import (
	"errors"
	"fmt"
	"strings"

	"ctastats/internal/model"
)

var (
	ErrEmptyGroupKey    = errors.New("aggregate: group key is empty")
	ErrInvalidDimension = errors.New("aggregate: invalid dimension")
	ErrUnknownColumn    = errors.New("aggregate: unknown column")
	ErrInvalidChunkSize = errors.New("aggregate: chunk size must be positive")
)

// Group is one distinct combination of key values and the number of records
// carrying it.
type Group struct {
	Values []string
	Count  int
}

// GroupAndCount counts records per distinct combination of key values. Groups
// come back in the order their first record appears in the table.
func GroupAndCount(table model.Table, key model.GroupKey) ([]Group, error) {
	if len(key) == 0 {
		return nil, ErrEmptyGroupKey
	}
	for _, dim := range key {
		if !dim.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDimension, dim)
		}
	}

	positions := make(map[string]int)
	groups := make([]Group, 0)
	for _, record := range table.Records {
		values := make([]string, len(key))
		for i, dim := range key {
			values[i] = dim.Value(record)
		}
		id := strings.Join(values, "\x1f")
		if index, ok := positions[id]; ok {
			groups[index].Count++
			continue
		}
		positions[id] = len(groups)
		groups = append(groups, Group{Values: values, Count: 1})
	}
	return groups, nil
}
