package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of the pipeline as recorded in the run log.
type Run struct {
	ID        string     `json:"id" yaml:"id"`
	Strategy  string     `json:"strategy" yaml:"strategy"`
	Status    RunStatus  `json:"status" yaml:"status"`
	Counts    RunCounts  `json:"counts" yaml:"counts"`
	Metrics   RunMetrics `json:"metrics" yaml:"metrics"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
}

// RunCounts holds row counts per stage.
type RunCounts struct {
	Tracks     int `json:"tracks" yaml:"tracks"`
	Awards     int `json:"awards" yaml:"awards"`
	Enrichment int `json:"enrichment" yaml:"enrichment"`
	Merged     int `json:"merged" yaml:"merged"`
}

// RunMetrics holds the reconciliation observability outputs.
type RunMetrics struct {
	MatchedRows      int      `json:"matched_rows" yaml:"matched_rows"`
	MatchRate        float64  `json:"match_rate" yaml:"match_rate"`
	UniqueArtists    int      `json:"unique_artists" yaml:"unique_artists"`
	FollowerCoverage float64  `json:"follower_coverage" yaml:"follower_coverage"`
	ArtistAgreement  *float64 `json:"artist_agreement,omitempty" yaml:"artist_agreement,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus
	Limit  int
}
