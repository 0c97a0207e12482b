package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/chart-etl/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS etl_runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO etl_runs`).
		WithArgs(pgxmock.AnyArg(), "fuzzy", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "fuzzy")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE etl_runs SET status = \$1`).
		WithArgs("complete", []byte(`{"tracks":3,"awards":2,"enrichment":0,"merged":3}`), pgxmock.AnyArg(), "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	run := &model.Run{ID: "run-1", Status: model.RunStatusRunning, Counts: model.RunCounts{Tracks: 3, Awards: 2, Merged: 3}}
	require.NoError(t, s.FinishRun(context.Background(), run))
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.NotNil(t, run.EndedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE etl_runs`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), &model.Run{ID: "nope", Error: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, strategy, status, counts, metrics, error, started_at, ended_at FROM etl_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM etl_runs WHERE true AND status = \$1 ORDER BY started_at DESC LIMIT \$2`).
		WithArgs("failed", 5).
		WillReturnError(fmt.Errorf("connection lost"))

	_, err := s.ListRuns(context.Background(), model.RunFilter{Status: model.RunStatusFailed, Limit: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetArtists(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	fetched := time.Now().UTC()
	mock.ExpectQuery(`SELECT artist_id, artist_name, followers, fetched_at FROM artist_cache WHERE artist_id = ANY\(\$1\)`).
		WithArgs([]string{"a1", "a2"}, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"artist_id", "artist_name", "followers", "fetched_at"}).
			AddRow("a1", "Adele", int64Ptr(42), fetched))

	got, err := s.GetArtists(context.Background(), []string{"a1", "a2"}, time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Adele", got["a1"].ArtistName)
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := s.GetArtists(context.Background(), nil, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgresStore_PutArtists(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_artist_cache"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_artist_cache"}, []string{"artist_id", "artist_name", "followers", "fetched_at"}).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "artist_cache"`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.PutArtists(context.Background(), []model.CachedArtist{
		{ArtistID: "a1", ArtistName: "Adele", Followers: int64Ptr(1)},
		{ArtistID: "a1", ArtistName: "Adele dup"},
		{ArtistID: ""},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
