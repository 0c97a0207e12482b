package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/chart-etl/internal/db"
	"github.com/sells-group/chart-etl/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pool, err := NewPool(ctx, connString, poolCfg)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPool opens and pings a pgx pool. The warehouse loader shares it.
func NewPool(ctx context.Context, connString string, poolCfg *PoolConfig) (*pgxpool.Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(8)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return pool, nil
}

// Pool returns the underlying pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id         TEXT PRIMARY KEY,
	strategy   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	counts     JSONB NOT NULL DEFAULT '{}',
	metrics    JSONB NOT NULL DEFAULT '{}',
	error      TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_status ON etl_runs(status);
CREATE INDEX IF NOT EXISTS idx_etl_runs_started_at ON etl_runs(started_at DESC);

CREATE TABLE IF NOT EXISTS artist_cache (
	artist_id   TEXT PRIMARY KEY,
	artist_name TEXT NOT NULL DEFAULT '',
	followers   BIGINT,
	fetched_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_artist_cache_fetched_at ON artist_cache(fetched_at);
`

var artistCacheTable = db.Table{Name: "artist_cache"}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, strategy string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Strategy:  strategy,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO etl_runs (id, strategy, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Strategy, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.Run) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counts")
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metrics")
	}

	run.Status = finishedStatus(run)
	ended := time.Now().UTC()
	run.EndedAt = &ended

	tag, err := s.pool.Exec(ctx,
		`UPDATE etl_runs SET status = $1, counts = $2, metrics = $3, error = $4, ended_at = $5 WHERE id = $6`,
		string(run.Status), counts, metrics, run.Error, ended, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", run.ID)
	}
	return nil
}

const selectRun = `SELECT id, strategy, status, counts, metrics, error, started_at, ended_at FROM etl_runs`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, selectRun+` WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	query := selectRun + ` WHERE true`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	args = append(args, listLimit(filter))
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var counts, metrics []byte
	if err := row.Scan(&r.ID, &r.Strategy, &status, &counts, &metrics, &r.Error, &r.StartedAt, &r.EndedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if err := decodeRunJSON(counts, metrics, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeRunJSON(counts, metrics []byte, r *model.Run) error {
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &r.Counts); err != nil {
			return eris.Wrap(err, "store: unmarshal counts")
		}
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
			return eris.Wrap(err, "store: unmarshal metrics")
		}
	}
	return nil
}

func (s *PostgresStore) GetArtists(ctx context.Context, artistIDs []string, maxAge time.Duration) (map[string]model.CachedArtist, error) {
	out := make(map[string]model.CachedArtist)
	if len(artistIDs) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT artist_id, artist_name, followers, fetched_at FROM artist_cache WHERE artist_id = ANY($1) AND fetched_at > $2`,
		artistIDs, time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get artists")
	}
	defer rows.Close()

	for rows.Next() {
		var a model.CachedArtist
		if err := rows.Scan(&a.ArtistID, &a.ArtistName, &a.Followers, &a.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan artist")
		}
		out[a.ArtistID] = a
	}
	return out, eris.Wrap(rows.Err(), "postgres: get artists iterate")
}

func (s *PostgresStore) PutArtists(ctx context.Context, artists []model.CachedArtist) error {
	rows := make([][]any, 0, len(artists))
	seen := make(map[string]bool, len(artists))
	for _, a := range artists {
		if a.ArtistID == "" || seen[a.ArtistID] {
			continue
		}
		seen[a.ArtistID] = true
		fetched := a.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now().UTC()
		}
		rows = append(rows, []any{a.ArtistID, a.ArtistName, a.Followers, fetched})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        artistCacheTable,
		Columns:      []string{"artist_id", "artist_name", "followers", "fetched_at"},
		ConflictKeys: []string{"artist_id"},
	}, rows)
	return eris.Wrap(err, "postgres: put artists")
}
