package store

import (
	"context"
	"errors"
	"time"

	"ctastats/internal/model"
)

var ErrNoSnapshot = errors.New("store: no snapshot")

type Store interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) (int64, error)
	LatestSnapshot(ctx context.Context) (Snapshot, error)
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
	Close() error
}

// Snapshot is one normalized table as fetched at FetchedAt.
type Snapshot struct {
	ID        int64
	Source    string
	FetchedAt time.Time
	Table     model.Table
}

type SnapshotInfo struct {
	ID          int64
	Source      string
	FetchedAt   time.Time
	RecordCount int
}

type NopStore struct{}

func (s *NopStore) SaveSnapshot(ctx context.Context, snapshot Snapshot) (int64, error) {
	_ = ctx
	_ = snapshot
	return 0, nil
}

func (s *NopStore) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	_ = ctx
	return Snapshot{}, ErrNoSnapshot
}

func (s *NopStore) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	_ = ctx
	return nil, nil
}

func (s *NopStore) Close() error {
	return nil
}
