package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"ctastats/internal/model"
	"ctastats/internal/store"
)

const (
	timeLayout = time.RFC3339Nano
	dateLayout = "2006-01-02"
	// Rows per INSERT; keeps the bound parameter count well under SQLite's limit.
	insertBatch = 500
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveSnapshot(ctx context.Context, snapshot store.Snapshot) (id int64, err error) {
	fetchedAt := snapshot.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := sq.Insert("snapshots").
		Columns("source", "fetched_at", "record_count").
		Values(snapshot.Source, fetchedAt.UTC().Format(timeLayout), snapshot.Table.Len()).
		ToSql()
	if err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert snapshot: %w", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, err
	}

	positions := lo.Range(snapshot.Table.Len())
	for _, batch := range lo.Chunk(positions, insertBatch) {
		insert := sq.Insert("company_records").
			Columns("snapshot_id", "position", "company_name", "country", "target_status", "submitted_on", "year")
		for _, position := range batch {
			record := snapshot.Table.Records[position]
			insert = insert.Values(
				id,
				position,
				record.CompanyName,
				record.Country,
				string(record.Status),
				record.Date.Format(dateLayout),
				record.Year,
			)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return 0, err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("sqlite: insert records: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) LatestSnapshot(ctx context.Context) (store.Snapshot, error) {
	query, args, err := sq.Select("id", "source", "fetched_at").
		From("snapshots").
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return store.Snapshot{}, err
	}

	var (
		snapshot  store.Snapshot
		fetchedAt string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&snapshot.ID, &snapshot.Source, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, store.ErrNoSnapshot
	}
	if err != nil {
		return store.Snapshot{}, err
	}
	if snapshot.FetchedAt, err = time.Parse(timeLayout, fetchedAt); err != nil {
		return store.Snapshot{}, fmt.Errorf("sqlite: snapshot %d: %w", snapshot.ID, err)
	}

	records, err := s.loadRecords(ctx, snapshot.ID)
	if err != nil {
		return store.Snapshot{}, err
	}
	snapshot.Table = model.Table{Records: records}
	return snapshot, nil
}

func (s *Store) ListSnapshots(ctx context.Context) ([]store.SnapshotInfo, error) {
	query, args, err := sq.Select("id", "source", "fetched_at", "record_count").
		From("snapshots").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	infos := make([]store.SnapshotInfo, 0)
	for rows.Next() {
		var (
			info      store.SnapshotInfo
			fetchedAt string
		)
		if err := rows.Scan(&info.ID, &info.Source, &fetchedAt, &info.RecordCount); err != nil {
			return nil, err
		}
		if info.FetchedAt, err = time.Parse(timeLayout, fetchedAt); err != nil {
			return nil, fmt.Errorf("sqlite: snapshot %d: %w", info.ID, err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

func (s *Store) loadRecords(ctx context.Context, snapshotID int64) ([]model.CompanyRecord, error) {
	query, args, err := sq.Select("company_name", "country", "target_status", "submitted_on").
		From("company_records").
		Where(sq.Eq{"snapshot_id": snapshotID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.CompanyRecord, 0)
	for rows.Next() {
		var name, country, status, submittedOn string
		if err := rows.Scan(&name, &country, &status, &submittedOn); err != nil {
			return nil, err
		}
		date, err := time.Parse(dateLayout, submittedOn)
		if err != nil {
			return nil, fmt.Errorf("sqlite: record %q: %w", name, err)
		}
		records = append(records, model.NewCompanyRecord(name, country, model.TargetStatus(status), date))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			fetched_at TEXT NOT NULL,
			record_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS company_records (
			snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			company_name TEXT NOT NULL,
			country TEXT NOT NULL,
			target_status TEXT NOT NULL,
			submitted_on TEXT NOT NULL,
			year INTEGER NOT NULL,
			PRIMARY KEY (snapshot_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS company_records_country ON company_records (snapshot_id, country);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}

var _ store.Store = (*Store)(nil)
