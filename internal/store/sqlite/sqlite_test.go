package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctastats/internal/model"
	"ctastats/internal/store"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "cta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLatestSnapshotEmpty(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	_, err := s.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, store.ErrNoSnapshot)
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	first := model.NewTable([]model.CompanyRecord{
		model.NewCompanyRecord("A", "Sweden", model.StatusTargetsSet, time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)),
	})
	second := model.NewTable([]model.CompanyRecord{
		model.NewCompanyRecord("B", "Sweden", model.StatusCommitted, time.Date(2021, time.June, 15, 0, 0, 0, 0, time.UTC)),
		model.NewCompanyRecord("A", "Sweden", model.StatusTargetsSet, time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)),
	})
	fetchedAt := time.Date(2024, time.May, 2, 8, 30, 0, 0, time.UTC)

	firstID, err := s.SaveSnapshot(ctx, store.Snapshot{Source: "sbti", FetchedAt: fetchedAt.Add(-time.Hour), Table: first})
	require.NoError(t, err)
	secondID, err := s.SaveSnapshot(ctx, store.Snapshot{Source: "file", FetchedAt: fetchedAt, Table: second})
	require.NoError(t, err)
	assert.Greater(t, secondID, firstID)

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, secondID, latest.ID)
	assert.Equal(t, "file", latest.Source)
	assert.True(t, fetchedAt.Equal(latest.FetchedAt))
	assert.Equal(t, second, latest.Table)

	infos, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, 1, infos[0].RecordCount)
	assert.Equal(t, 2, infos[1].RecordCount)
}

func TestSaveSnapshotBatchesLargeTables(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	records := make([]model.CompanyRecord, 0, insertBatch*2+7)
	for i := 0; i < cap(records); i++ {
		records = append(records, model.NewCompanyRecord(
			fmt.Sprintf("Company %d", i),
			"Japan",
			model.StatusCommitted,
			time.Date(2015+i%9, time.January, 1, 0, 0, 0, 0, time.UTC),
		))
	}

	_, err := s.SaveSnapshot(ctx, store.Snapshot{Source: "sbti", Table: model.NewTable(records)})
	require.NoError(t, err)

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, len(records), latest.Table.Len())
	assert.Equal(t, records[len(records)-1], latest.Table.Records[len(records)-1])
}

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := New("")
	assert.Error(t, err)
}
