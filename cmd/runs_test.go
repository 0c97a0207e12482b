//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/chart-etl/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	ended := now.Add(2 * time.Minute)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Strategy:  "exact",
			Status:    model.RunStatusComplete,
			Counts:    model.RunCounts{Merged: 114000},
			Metrics:   model.RunMetrics{MatchRate: 0.5},
			StartedAt: now,
			EndedAt:   &ended,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Strategy:  "fuzzy",
			Status:    model.RunStatusRunning,
			StartedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "STRATEGY")
	assert.Contains(t, output, "MATCH")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "114000")
	assert.Contains(t, output, "50.0%")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "fuzzy")
	assert.Contains(t, output, "running")
}

func TestComputeRunStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	tenSec := now.Add(10 * time.Second)
	thirtySec := now.Add(30 * time.Second)

	runs := []model.Run{
		{ID: "1", Status: model.RunStatusComplete, StartedAt: now, EndedAt: &tenSec, Metrics: model.RunMetrics{MatchRate: 0.2}},
		{ID: "2", Status: model.RunStatusComplete, StartedAt: now, EndedAt: &thirtySec, Metrics: model.RunMetrics{MatchRate: 0.4}},
		{ID: "3", Status: model.RunStatusFailed, StartedAt: now, EndedAt: &tenSec},
		{ID: "4", Status: model.RunStatusRunning, StartedAt: now},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.InDelta(t, 20.0, s.AvgDurSecs, 0.001)
	assert.InDelta(t, 0.3, s.AvgMatchRate, 0.001)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, runStats{}, s)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 3, Complete: 2, Failed: 1, AvgDurSecs: 12.5, AvgMatchRate: 0.25})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "12.5s")
	assert.Contains(t, output, "25.0%")
}

func TestFormatRunStats_NoComplete(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 1, Failed: 1})

	output := buf.String()
	assert.NotContains(t, output, "Avg duration")
	assert.NotContains(t, output, "Avg match rate")
}

func TestTruncateID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc12345-6789-0000", "abc12345"},
		{"short", "short"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateID(tt.in))
	}
}
