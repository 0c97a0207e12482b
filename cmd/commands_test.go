package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/chart-etl/internal/config"
	"github.com/sells-group/chart-etl/internal/extract"
	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/pipeline"
	"github.com/sells-group/chart-etl/internal/reconcile"
	"github.com/sells-group/chart-etl/internal/transform"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func rawTracksCSV() string {
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
	return b.String()
}

const rawAwardsCSV = `year,category,nominee,artist,workers,winner
2016,Record Of The Year,Hello,Adele,,True
2016,Song Of The Year,Formation,,,False
`

const enrichmentCSV = `track_id,artist_id,artist_name,followers
t1,a1,Gen Hoshino,100
t2,a2,Adele,5000
`

// cleanToFile runs one cleaning stage from in and writes JSON into dir.
func cleanToFile(t *testing.T, stage, in string) string {
	t.Helper()
	ctx := context.Background()
	f, err := readIntermediate(ctx, stage, in)
	require.NoError(t, err)
	cleaned, err := cleanFrame(transform.DefaultRules(), stage, f)
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), stage+".json")
	require.NoError(t, writeIntermediate(out, cleaned))
	return out
}

func TestCleanFrame_Tracks(t *testing.T) {
	f, err := readIntermediate(context.Background(), transform.StageTracks, writeFile(t, "tracks.csv", rawTracksCSV()))
	require.NoError(t, err)

	cleaned, err := cleanFrame(transform.DefaultRules(), transform.StageTracks, f)
	require.NoError(t, err)
	assert.Equal(t, model.TrackColumns, cleaned.Columns)
	assert.Equal(t, 2, cleaned.Len())
}

func TestCleanFrame_Awards(t *testing.T) {
	f, err := readIntermediate(context.Background(), transform.StageAwards, writeFile(t, "awards.csv", rawAwardsCSV))
	require.NoError(t, err)

	cleaned, err := cleanFrame(transform.DefaultRules(), transform.StageAwards, f)
	require.NoError(t, err)
	assert.Equal(t, model.AwardColumns, cleaned.Columns)
	require.Equal(t, 1, cleaned.Len())
	assert.Equal(t, "Hello", cleaned.Rows[0][model.ColTitle])
	assert.Equal(t, "Adele", cleaned.Rows[0][model.ColArtist])
}

func TestCleanFrame_Enrichment(t *testing.T) {
	f, err := readIntermediate(context.Background(), transform.StageEnrichment, writeFile(t, "enrichment.csv", enrichmentCSV))
	require.NoError(t, err)

	cleaned, err := cleanFrame(transform.DefaultRules(), transform.StageEnrichment, f)
	require.NoError(t, err)
	assert.Equal(t, model.EnrichmentColumns, cleaned.Columns)
	assert.Equal(t, 2, cleaned.Len())
}

func TestCleanFrame_UnknownStage(t *testing.T) {
	_, err := cleanFrame(transform.DefaultRules(), "lyrics", model.NewFrame("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestCleanFrame_EmptyInput(t *testing.T) {
	_, err := cleanFrame(transform.DefaultRules(), transform.StageTracks, model.NewFrame(model.RawTrackColumns...))

	var empty *transform.EmptyInputError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, transform.StageTracks, empty.Stage)
}

func TestReadIntermediate_MalformedJSON(t *testing.T) {
	_, err := readIntermediate(context.Background(), transform.StageAwards, writeFile(t, "awards.json", `[{"year": 2016,`))

	var decode *transform.DecodeError
	require.True(t, errors.As(err, &decode))
	assert.Equal(t, transform.StageAwards, decode.Stage)
	assert.Equal(t, -1, decode.Row)
}

func TestReadIntermediate_MissingFile(t *testing.T) {
	_, err := readIntermediate(context.Background(), transform.StageTracks, filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestCleanIsIdempotent(t *testing.T) {
	once := cleanToFile(t, transform.StageTracks, writeFile(t, "tracks.csv", rawTracksCSV()))
	twice := cleanToFile(t, transform.StageTracks, once)

	a, err := os.ReadFile(once)
	require.NoError(t, err)
	b, err := os.ReadFile(twice)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestReadMergeInput_AndReconcile(t *testing.T) {
	tracks := cleanToFile(t, transform.StageTracks, writeFile(t, "tracks.csv", rawTracksCSV()))
	awards := cleanToFile(t, transform.StageAwards, writeFile(t, "awards.csv", rawAwardsCSV))
	enrichment := cleanToFile(t, transform.StageEnrichment, writeFile(t, "enrichment.csv", enrichmentCSV))

	in, err := readMergeInput(context.Background(), tracks, awards, enrichment)
	require.NoError(t, err)
	assert.Len(t, in.Tracks, 2)
	assert.Len(t, in.Awards, 1)
	assert.Len(t, in.Enrichment, 2)

	engine, err := newEngine(&config.Config{Reconcile: config.ReconcileConfig{
		Strategy:       "exact",
		ExactKeys:      []string{"title", "artist"},
		FuzzyThreshold: 85,
	}}, "")
	require.NoError(t, err)

	res, err := engine.Reconcile(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Report.MatchedRows)
	assert.True(t, res.Report.Enriched)

	var buf bytes.Buffer
	require.NoError(t, model.EncodeJSON(&buf, res.Frame()))
	assert.Contains(t, buf.String(), `"followers"`)
}

func TestReadMergeInput_WithoutEnrichment(t *testing.T) {
	tracks := cleanToFile(t, transform.StageTracks, writeFile(t, "tracks.csv", rawTracksCSV()))
	awards := cleanToFile(t, transform.StageAwards, writeFile(t, "awards.csv", rawAwardsCSV))

	in, err := readMergeInput(context.Background(), tracks, awards, "")
	require.NoError(t, err)
	assert.Nil(t, in.Enrichment)
}

func TestReadMergeInput_MissingAwards(t *testing.T) {
	tracks := cleanToFile(t, transform.StageTracks, writeFile(t, "tracks.csv", rawTracksCSV()))

	_, err := readMergeInput(context.Background(), tracks, filepath.Join(t.TempDir(), "awards.json"), "")
	require.Error(t, err)
}

func sampleResult() *pipeline.Result {
	started := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ended := started.Add(90 * time.Second)
	return &pipeline.Result{
		Run: &model.Run{
			ID:        "run-1",
			Strategy:  "exact",
			Status:    model.RunStatusComplete,
			Counts:    model.RunCounts{Tracks: 2, Awards: 1, Enrichment: 2, Merged: 2},
			StartedAt: started,
			EndedAt:   &ended,
		},
		Report: reconcile.Report{
			Strategy:         reconcile.StrategyExact,
			TotalRows:        2,
			MatchedRows:      1,
			MatchRate:        0.5,
			Enriched:         true,
			FollowerCoverage: 1,
		},
		Loaded:           2,
		EnrichmentSource: extract.SourceFallback,
		SharedAs:         "merged_data.csv",
	}
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	printRunSummary(&buf, sampleResult())

	output := buf.String()
	assert.Contains(t, output, "Run run-1 complete")
	assert.Contains(t, output, "merged=2 loaded=2")
	assert.Contains(t, output, "matched=1 (50.0%)")
	assert.Contains(t, output, "enrichment=fallback")
	assert.Contains(t, output, "shared as merged_data.csv")
}

func TestPrintRunSummary_Unenriched(t *testing.T) {
	res := sampleResult()
	res.Report.Enriched = false
	res.SharedAs = ""

	var buf bytes.Buffer
	printRunSummary(&buf, res)
	assert.NotContains(t, buf.String(), "follower_coverage")
	assert.NotContains(t, buf.String(), "shared as")
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, writeReport(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, 2, got["loaded_rows"])
	assert.Equal(t, "fallback", got["enrichment_source"])
	assert.Equal(t, "merged_data.csv", got["shared_as"])

	recon, ok := got["reconciliation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "exact", recon["strategy"])
	assert.Equal(t, 0.5, recon["match_rate"])
}

func TestWriteReport_BadPath(t *testing.T) {
	err := writeReport(filepath.Join(t.TempDir(), "missing", "report.yaml"), sampleResult())
	require.Error(t, err)
}
