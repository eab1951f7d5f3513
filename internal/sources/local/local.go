package local

import (
	"context"
	"errors"
	"os"
	"strings"

	"ctastats/internal/sources"
)

// Source reads a workbook that was downloaded earlier.
type Source struct {
	path string
}

func New(path string) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("local: path is required")
	}
	return &Source{path: path}, nil
}

func (s *Source) Name() string {
	return "file"
}

func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &sources.FetchError{Source: s.Name(), Err: err}
	}
	body, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &sources.FetchError{Source: s.Name(), Err: err}
	}
	return body, nil
}

var _ sources.Source = (*Source)(nil)
