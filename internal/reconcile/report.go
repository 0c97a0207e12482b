package reconcile

import (
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
)

// Report holds the observability outputs of a reconciliation. Nothing in
// the pipeline branches on it.
type Report struct {
	Strategy             Strategy `json:"strategy" yaml:"strategy"`
	TotalRows            int      `json:"total_rows" yaml:"total_rows"`
	MatchedRows          int      `json:"matched_rows" yaml:"matched_rows"`
	ExactMatches         int      `json:"exact_matches" yaml:"exact_matches"`
	FuzzyMatches         int      `json:"fuzzy_matches" yaml:"fuzzy_matches"`
	MatchRate            float64  `json:"match_rate" yaml:"match_rate"`
	UniqueArtists        int      `json:"unique_artists" yaml:"unique_artists"`
	ArtistsWithFollowers int      `json:"artists_with_followers" yaml:"artists_with_followers"`
	FollowerCoverage     float64  `json:"follower_coverage" yaml:"follower_coverage"`
	Enriched             bool     `json:"enriched" yaml:"enriched"`
	ArtistAgreement      *float64 `json:"artist_agreement,omitempty" yaml:"artist_agreement,omitempty"`
}

// buildReport computes match and coverage metrics. apiNames is nil when
// enrichment was not applied; otherwise an empty name marks a track with
// no resolved artist.
func buildReport(strategy Strategy, records []model.Merged, apiNames []string) Report {
	rep := Report{Strategy: strategy, TotalRows: len(records), Enriched: apiNames != nil}

	artists := make(map[string]bool)
	covered := make(map[string]bool)
	for i, m := range records {
		if m.Matched() {
			rep.MatchedRows++
		}
		artists[m.Artists] = true
		if apiNames != nil && apiNames[i] != "" {
			covered[m.Artists] = true
		}
	}
	rep.UniqueArtists = len(artists)
	rep.ArtistsWithFollowers = len(covered)
	if rep.TotalRows > 0 {
		rep.MatchRate = float64(rep.MatchedRows) / float64(rep.TotalRows)
	}
	if rep.UniqueArtists > 0 {
		rep.FollowerCoverage = float64(rep.ArtistsWithFollowers) / float64(rep.UniqueArtists)
	}
	if apiNames != nil {
		agreement := artistAgreement(records, apiNames)
		rep.ArtistAgreement = &agreement
	}
	return rep
}

// Log writes the report as structured fields.
func (r Report) Log() {
	fields := []zap.Field{
		zap.String("strategy", string(r.Strategy)),
		zap.Int("total_rows", r.TotalRows),
		zap.Int("matched_rows", r.MatchedRows),
		zap.Int("exact_matches", r.ExactMatches),
		zap.Int("fuzzy_matches", r.FuzzyMatches),
		zap.Float64("match_rate_pct", r.MatchRate*100),
		zap.Int("unique_artists", r.UniqueArtists),
	}
	if r.Enriched {
		fields = append(fields,
			zap.Int("artists_with_followers", r.ArtistsWithFollowers),
			zap.Float64("follower_coverage_pct", r.FollowerCoverage*100),
		)
	}
	if r.ArtistAgreement != nil {
		fields = append(fields, zap.Float64("artist_name_agreement_pct", *r.ArtistAgreement*100))
	}
	zap.L().Info("reconcile: merge complete", fields...)
}

// Metrics converts the report into the run log shape.
func (r Report) Metrics() model.RunMetrics {
	return model.RunMetrics{
		MatchedRows:      r.MatchedRows,
		MatchRate:        r.MatchRate,
		UniqueArtists:    r.UniqueArtists,
		FollowerCoverage: r.FollowerCoverage,
		ArtistAgreement:  r.ArtistAgreement,
	}
}
