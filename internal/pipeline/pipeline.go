package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ctastats/internal/aggregate"
	"ctastats/internal/model"
	"ctastats/internal/sheet"
	"ctastats/internal/store"
	"ctastats/internal/summary"
)

// Result is everything a presenter needs for one view.
type Result struct {
	Params  Params             `json:"params"`
	Report  sheet.Report       `json:"-"`
	Matrix  aggregate.Matrix   `json:"matrix"`
	Pages   []aggregate.Matrix `json:"pages"`
	Summary summary.Summary    `json:"summary"`
}

type Pipeline struct {
	loader Loader
	logger *zap.Logger
}

func New(loader Loader, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{loader: loader, logger: logger}
}

// Load returns the normalized table. A failed fetch yields no table.
func (p *Pipeline) Load(ctx context.Context) (model.Table, sheet.Report, error) {
	return p.loader.Load(ctx)
}

func (p *Pipeline) Run(ctx context.Context, params Params) (Result, error) {
	table, report, err := p.loader.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	result, err := Aggregate(table, params)
	if err != nil {
		return Result{}, err
	}
	result.Report = report

	p.logger.Info("pipeline complete",
		zap.String("group_by", string(result.Params.GroupBy)),
		zap.String("country", result.Params.Country),
		zap.Int("records", table.Len()),
		zap.Int("dropped", report.DroppedMissingDate+report.DroppedBadDate),
		zap.Int("rows", result.Matrix.Len()),
		zap.Int("pages", len(result.Pages)),
	)
	return result, nil
}

// Aggregate builds the view for an already normalized table.
//
// By country: one row per country, sorted by approved targets (descending)
// and chunked into pages. By year: the chosen country's rows per year in
// ascending order, on a single page.
func Aggregate(table model.Table, params Params) (Result, error) {
	resolved, err := params.Resolve(table)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Params:  resolved,
		Summary: summary.Compute(table, resolved.Country),
	}

	switch resolved.GroupBy {
	case GroupByYear:
		m, err := summary.PerYear(table, resolved.Country, nil)
		if err != nil {
			return Result{}, fmt.Errorf("aggregate: %w", err)
		}
		result.Matrix = m
		result.Pages = []aggregate.Matrix{m}
	default:
		m, err := aggregate.Pivot(table, model.DimCountry, model.ExpectedStatuses)
		if err != nil {
			return Result{}, fmt.Errorf("aggregate: %w", err)
		}
		m, err = m.SortByColumn(string(model.StatusTargetsSet), true)
		if err != nil {
			return Result{}, fmt.Errorf("aggregate: %w", err)
		}
		pages, err := m.Chunk(resolved.RowsPerPage)
		if err != nil {
			return Result{}, fmt.Errorf("aggregate: %w", err)
		}
		result.Matrix = m
		result.Pages = pages
	}
	return result, nil
}

// Collect fetches and normalizes once and stores the table as a snapshot.
func Collect(ctx context.Context, loader *FetchLoader, st store.Store, fetchedAt time.Time) (store.Snapshot, sheet.Report, error) {
	table, report, err := loader.Load(ctx)
	if err != nil {
		return store.Snapshot{}, sheet.Report{}, err
	}

	snapshot := store.Snapshot{
		Source:    loader.SourceName(),
		FetchedAt: fetchedAt.UTC(),
		Table:     table,
	}
	id, err := st.SaveSnapshot(ctx, snapshot)
	if err != nil {
		return store.Snapshot{}, sheet.Report{}, fmt.Errorf("save snapshot: %w", err)
	}
	snapshot.ID = id
	return snapshot, report, nil
}
