package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ctastats/internal/model"
	"ctastats/internal/sheet"
	"ctastats/internal/sources"
	"ctastats/internal/store"
)

// Loader produces the normalized table a run aggregates.
type Loader interface {
	Load(ctx context.Context) (model.Table, sheet.Report, error)
}

// FetchLoader downloads the workbook and normalizes it.
type FetchLoader struct {
	source  sources.Source
	options sheet.Options
	logger  *zap.Logger
}

func NewFetchLoader(source sources.Source, options sheet.Options, logger *zap.Logger) *FetchLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.Logger == nil {
		options.Logger = logger.Named("sheet")
	}
	return &FetchLoader{source: source, options: options, logger: logger}
}

func (l *FetchLoader) SourceName() string {
	return l.source.Name()
}

func (l *FetchLoader) Load(ctx context.Context) (model.Table, sheet.Report, error) {
	raw, err := l.source.Fetch(ctx)
	if err != nil {
		return model.Table{}, sheet.Report{}, fmt.Errorf("fetch: %w", err)
	}
	l.logger.Debug("fetched workbook", zap.String("source", l.source.Name()), zap.Int("bytes", len(raw)))

	table, report, err := sheet.Normalize(raw, l.options)
	if err != nil {
		return model.Table{}, sheet.Report{}, fmt.Errorf("normalize: %w", err)
	}
	return table, report, nil
}

// SnapshotLoader serves the latest table saved by the collector.
type SnapshotLoader struct {
	store store.Store
}

func NewSnapshotLoader(st store.Store) *SnapshotLoader {
	return &SnapshotLoader{store: st}
}

func (l *SnapshotLoader) Load(ctx context.Context) (model.Table, sheet.Report, error) {
	snapshot, err := l.store.LatestSnapshot(ctx)
	if err != nil {
		return model.Table{}, sheet.Report{}, fmt.Errorf("snapshot: %w", err)
	}
	n := snapshot.Table.Len()
	return snapshot.Table, sheet.Report{Raw: n, Retained: n}, nil
}

var (
	_ Loader = (*FetchLoader)(nil)
	_ Loader = (*SnapshotLoader)(nil)
)
