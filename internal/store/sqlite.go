package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/chart-etl/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id         TEXT PRIMARY KEY,
	strategy   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	counts     TEXT NOT NULL DEFAULT '{}',
	metrics    TEXT NOT NULL DEFAULT '{}',
	error      TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	ended_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_status ON etl_runs(status);
CREATE INDEX IF NOT EXISTS idx_etl_runs_started_at ON etl_runs(started_at);

CREATE TABLE IF NOT EXISTS artist_cache (
	artist_id   TEXT PRIMARY KEY,
	artist_name TEXT NOT NULL DEFAULT '',
	followers   INTEGER,
	fetched_at  DATETIME NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, strategy string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Strategy:  strategy,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etl_runs (id, strategy, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Strategy, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counts")
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metrics")
	}

	run.Status = finishedStatus(run)
	ended := time.Now().UTC()
	run.EndedAt = &ended

	res, err := s.db.ExecContext(ctx,
		`UPDATE etl_runs SET status = ?, counts = ?, metrics = ?, error = ?, ended_at = ? WHERE id = ?`,
		string(run.Status), string(counts), string(metrics), run.Error, ended, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: run %s", run.ID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanSQLiteRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	query := selectRun + ` WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status, counts, metrics string
	var ended sql.NullTime
	if err := row.Scan(&r.ID, &r.Strategy, &status, &counts, &metrics, &r.Error, &r.StartedAt, &ended); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if ended.Valid {
		t := ended.Time
		r.EndedAt = &t
	}
	if err := decodeRunJSON([]byte(counts), []byte(metrics), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) GetArtists(ctx context.Context, artistIDs []string, maxAge time.Duration) (map[string]model.CachedArtist, error) {
	out := make(map[string]model.CachedArtist)
	if len(artistIDs) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(artistIDs)+1)
	for _, id := range artistIDs {
		args = append(args, id)
	}
	args = append(args, time.Now().UTC().Add(-maxAge))
	query := `SELECT artist_id, artist_name, followers, fetched_at FROM artist_cache WHERE artist_id IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(artistIDs)), ",") + `) AND fetched_at > ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get artists")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var a model.CachedArtist
		var followers sql.NullInt64
		if err := rows.Scan(&a.ArtistID, &a.ArtistName, &followers, &a.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan artist")
		}
		if followers.Valid {
			a.Followers = &followers.Int64
		}
		out[a.ArtistID] = a
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get artists iterate")
}

func (s *SQLiteStore) PutArtists(ctx context.Context, artists []model.CachedArtist) error {
	if len(artists) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO artist_cache (artist_id, artist_name, followers, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(artist_id) DO UPDATE SET artist_name = excluded.artist_name, followers = excluded.followers, fetched_at = excluded.fetched_at`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare artist upsert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, a := range artists {
		if a.ArtistID == "" {
			continue
		}
		fetched := a.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, a.ArtistID, a.ArtistName, a.Followers, fetched.UTC()); err != nil {
			return eris.Wrapf(err, "sqlite: upsert artist %s", a.ArtistID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit artists")
}
