package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/db"
	"github.com/sells-group/chart-etl/internal/extract"
	"github.com/sells-group/chart-etl/internal/fetcher"
	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/reconcile"
	"github.com/sells-group/chart-etl/internal/share"
	"github.com/sells-group/chart-etl/internal/warehouse"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var (
	awardsTable = db.Table{Schema: "raw", Name: "grammy_awards"}
	mergedTable = db.Table{Schema: "merged", Name: "merged_data"}
)

func writeTracks(t *testing.T) string {
	t.Helper()
	rows := [][]string{
		model.RawTrackColumns,
		{"t1", "Gen Hoshino", "Comedy", "Comedy", "73", "230666", "False", "0.676", "0.461", "1", "-6.746", "0", "0.143", "0.0322", "1.01e-06", "0.358", "0.715", "87.917", "4", "acoustic"},
		{"t2", "Adele", "25", "Hello", "80", "295502", "False", "0.481", "0.451", "5", "-6.134", "0", "0.0347", "0.336", "0", "0.0872", "0.289", "157.98", "4", "pop"},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}
	path := filepath.Join(t.TempDir(), "tracks.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func expectAwards(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(`SELECT \* FROM "raw"."grammy_awards"`).
		WillReturnRows(pgxmock.NewRows([]string{"year", "category", "nominee", "artist", "workers", "winner"}).
			AddRow(int64(2016), "Record Of The Year", "Hello", "Adele", nil, true).
			AddRow(int64(2016), "Song Of The Year", "Formation", nil, nil, false))
}

func enrichmentFrame() model.Frame {
	f := model.NewFrame(model.EnrichmentColumns...)
	f.Rows = []model.Row{
		{"track_id": "t1", "artist_id": "a1", "artist_name": "Gen Hoshino", "followers": int64(100)},
		{"track_id": "t2", "artist_id": "a2", "artist_name": "Adele", "followers": int64(5000)},
	}
	return f
}

type fixture struct {
	pool     pgxmock.PgxPoolIface
	runs     *fakeRuns
	loader   *fakeLoader
	enricher *fakeEnricher
	uploader *fakeUploader
	opts     Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &fixture{
		pool:     pool,
		runs:     &fakeRuns{},
		loader:   &fakeLoader{},
		enricher: &fakeEnricher{frame: enrichmentFrame()},
		uploader: &fakeUploader{},
		opts: Options{
			TracksLocation: writeTracks(t),
			AwardsTable:    awardsTable,
			MergedTable:    mergedTable,
			Mode:           warehouse.ModeReplace,
			ShareTitle:     "merged_data",
			ShareFormat:    share.FormatCSV,
		},
	}
}

func (f *fixture) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	engine, err := reconcile.New(reconcile.Config{Workers: 1})
	require.NoError(t, err)
	deps := Deps{
		Runs:      f.runs,
		Warehouse: f.pool,
		Loader:    f.loader,
		Fetcher:   fetcher.NewRouter(),
		Engine:    engine,
	}
	if f.enricher != nil {
		deps.Enricher = f.enricher
	}
	if f.uploader != nil {
		deps.Uploader = f.uploader
	}
	return New(f.opts, deps)
}

func TestRun_Success(t *testing.T) {
	f := newFixture(t)
	expectAwards(f.pool)

	res, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"t1", "t2"}, f.enricher.ids)
	assert.Equal(t, extract.SourceAPI, res.EnrichmentSource)
	assert.Equal(t, int64(2), res.Loaded)
	assert.Equal(t, "merged_data.csv", res.SharedAs)
	assert.Equal(t, 1, res.Report.MatchedRows)

	require.Len(t, f.loader.loads, 1)
	loaded := f.loader.loads[0]
	assert.Equal(t, mergedTable, loaded.table)
	assert.Equal(t, warehouse.ModeReplace, loaded.mode)
	assert.True(t, loaded.frame.Has(model.ColFollowers))
	assert.Equal(t, "Record Of The Year", loaded.frame.Rows[1]["category"])
	assert.Equal(t, int64(5000), loaded.frame.Rows[1]["followers"])
	assert.Equal(t, model.NotApplicable, loaded.frame.Rows[0]["category"])

	assert.Contains(t, string(f.uploader.body), model.NotApplicable)

	require.Len(t, f.runs.finished, 1)
	run := f.runs.finished[0]
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, "exact", run.Strategy)
	assert.Equal(t, model.RunCounts{Tracks: 2, Awards: 1, Enrichment: 2, Merged: 2}, run.Counts)
	assert.InDelta(t, 0.5, run.Metrics.MatchRate, 0.001)
	assert.NotNil(t, run.EndedAt)
	assert.NoError(t, f.pool.ExpectationsWereMet())
}

func TestRun_EnrichmentFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.enricher.err = errors.New("api down and no fallback")
	expectAwards(f.pool)

	res, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Merged.Has(model.ColFollowers))
	assert.Equal(t, model.RunStatusComplete, f.runs.finished[0].Status)
	assert.Zero(t, f.runs.finished[0].Counts.Enrichment)
}

func TestRun_WithoutEnricherOrUploader(t *testing.T) {
	f := newFixture(t)
	f.enricher, f.uploader = nil, nil
	expectAwards(f.pool)

	res, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.SharedAs)
	assert.Empty(t, res.EnrichmentSource)
	assert.False(t, res.Merged.Has(model.ColArtistID))
}

func TestRun_AwardsFailureAbortsBeforeLoad(t *testing.T) {
	f := newFixture(t)
	f.pool.ExpectQuery(`SELECT \* FROM "raw"."grammy_awards"`).WillReturnError(errors.New("relation does not exist"))

	_, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: awards")

	assert.Empty(t, f.loader.loads)
	assert.Nil(t, f.uploader.body)
	require.Len(t, f.runs.finished, 1)
	assert.Equal(t, model.RunStatusFailed, f.runs.finished[0].Status)
	assert.Contains(t, f.runs.finished[0].Error, "relation does not exist")
}

func TestRun_MissingTracksFile(t *testing.T) {
	f := newFixture(t)
	f.opts.TracksLocation = filepath.Join(t.TempDir(), "missing.csv")
	f.pool.MatchExpectationsInOrder(false)
	expectAwards(f.pool)

	_, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: tracks")
	assert.Equal(t, model.RunStatusFailed, f.runs.finished[0].Status)
}

func TestRun_LoadFailure(t *testing.T) {
	f := newFixture(t)
	f.loader.err = errors.New("copy failed")
	expectAwards(f.pool)

	_, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: load")
	assert.Nil(t, f.uploader.body)
	assert.Equal(t, model.RunStatusFailed, f.runs.finished[0].Status)
}

func TestRun_SeedsAwardsFirst(t *testing.T) {
	f := newFixture(t)
	awards := filepath.Join(t.TempDir(), "awards.csv")
	require.NoError(t, os.WriteFile(awards, []byte("year,category,nominee,artist,workers,winner\n2016,Record Of The Year,Hello,Adele,,true\n"), 0o644))
	f.opts.AwardsCSV = awards
	expectAwards(f.pool)

	_, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.loader.loads, 2)
	assert.Equal(t, awardsTable, f.loader.loads[0].table)
	assert.Equal(t, warehouse.ModeReplace, f.loader.loads[0].mode)
	assert.Equal(t, mergedTable, f.loader.loads[1].table)
}

func TestRun_FuzzyStrategy(t *testing.T) {
	f := newFixture(t)
	expectAwards(f.pool)

	engine, err := reconcile.New(reconcile.Config{Strategy: reconcile.StrategyFuzzy, Workers: 2})
	require.NoError(t, err)
	p := New(f.opts, Deps{Runs: f.runs, Warehouse: f.pool, Loader: f.loader, Fetcher: fetcher.NewRouter(), Engine: engine})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconcile.StrategyFuzzy, res.Report.Strategy)
	assert.Equal(t, []string{"fuzzy"}, f.runs.created)
}
