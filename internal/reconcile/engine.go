// Package reconcile merges cleaned tracks with award nominations and
// artist enrichment into one row per track.
package reconcile

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/transform"
)

// Strategy selects how tracks are paired with nominations.
type Strategy string

const (
	// StrategyExact left-joins on normalized key fields.
	StrategyExact Strategy = "exact"
	// StrategyFuzzy tries an exact title+artist match, then the best
	// token-sort title score at or above the threshold.
	StrategyFuzzy Strategy = "fuzzy"
)

// StageMerge names the reconciliation stage in errors.
const StageMerge = "merge"

// DefaultFuzzyThreshold is the minimum token-sort score for a fuzzy match.
const DefaultFuzzyThreshold = 85

// Config configures an Engine.
type Config struct {
	Strategy       Strategy `yaml:"strategy" mapstructure:"strategy"`
	ExactKeys      []string `yaml:"exact_keys" mapstructure:"exact_keys"`
	FuzzyThreshold int      `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	Workers        int      `yaml:"workers" mapstructure:"workers"`
}

// Input is the cleaned data to reconcile. Enrichment is optional. TrackIDs,
// when set, lists the track each enrichment row was fetched for and must
// be aligned with Enrichment; the fuzzy strategy skips enrichment when the
// lengths differ.
type Input struct {
	Tracks     []model.Track
	Awards     []model.Award
	Enrichment []model.Enrichment
	TrackIDs   []string
}

// Result is the merged table and its report.
type Result struct {
	Records  []model.Merged
	Enriched bool
	Report   Report
}

// Frame renders the merged records as a frame for loading and sharing.
func (r *Result) Frame() model.Frame {
	return model.MergedFrame(r.Records, r.Enriched)
}

// Engine reconciles datasets with a fixed strategy.
type Engine struct {
	cfg  Config
	keys keySpec
}

// New validates cfg and returns an Engine. Zero values select the exact
// strategy on title and artist, threshold 85 and one worker per CPU.
func New(cfg Config) (*Engine, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyExact
	}
	if cfg.Strategy != StrategyExact && cfg.Strategy != StrategyFuzzy {
		return nil, eris.Errorf("reconcile: unknown strategy %q", cfg.Strategy)
	}
	if len(cfg.ExactKeys) == 0 {
		cfg.ExactKeys = []string{KeyTitle, KeyArtist}
	}
	var keys keySpec
	for _, k := range cfg.ExactKeys {
		switch k {
		case KeyTitle:
			keys.title = true
		case KeyArtist:
			keys.artist = true
		default:
			return nil, eris.Errorf("reconcile: unknown join key %q", k)
		}
	}
	if cfg.FuzzyThreshold == 0 {
		cfg.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 100 {
		return nil, eris.Errorf("reconcile: fuzzy threshold %d outside 0-100", cfg.FuzzyThreshold)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{cfg: cfg, keys: keys}, nil
}

// Strategy returns the configured strategy.
func (e *Engine) Strategy() Strategy { return e.cfg.Strategy }

// match points a track at an award, or at none when Award is -1.
type match struct {
	Award int
	Fuzzy bool
}

// Reconcile produces one merged record per track, in track order, with ids
// 0..N-1. Inputs are not modified.
func (e *Engine) Reconcile(ctx context.Context, in Input) (*Result, error) {
	if len(in.Tracks) == 0 {
		return nil, &transform.EmptyInputError{Stage: StageMerge + ": tracks"}
	}
	if len(in.Awards) == 0 {
		return nil, &transform.EmptyInputError{Stage: StageMerge + ": awards"}
	}
	zap.L().Info("reconcile: starting merge",
		zap.String("strategy", string(e.cfg.Strategy)),
		zap.Int("tracks", len(in.Tracks)),
		zap.Int("awards", len(in.Awards)),
		zap.Int("enrichment", len(in.Enrichment)),
	)

	var (
		matches []match
		err     error
	)
	switch e.cfg.Strategy {
	case StrategyFuzzy:
		matches, err = e.matchFuzzy(ctx, in.Tracks, in.Awards)
	default:
		matches = e.matchExact(in.Tracks, in.Awards)
	}
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: match")
	}

	records := make([]model.Merged, len(in.Tracks))
	var exact, fuzzy int
	for i, t := range in.Tracks {
		m := model.Merged{ID: i, Track: t, Title: model.NotApplicable, Category: model.NotApplicable}
		if j := matches[i].Award; j >= 0 {
			a := in.Awards[j]
			year := a.Year
			m.Year = &year
			m.Title = a.Title
			m.Category = a.Category
			m.IsWinner = a.IsWinner
			if matches[i].Fuzzy {
				fuzzy++
			} else {
				exact++
			}
		}
		records[i] = m
	}

	var apiNames []string
	if idx := e.enrichmentIndex(in); idx != nil {
		apiNames = idx.apply(records)
	}

	rep := buildReport(e.cfg.Strategy, records, apiNames)
	rep.ExactMatches, rep.FuzzyMatches = exact, fuzzy
	rep.Log()

	return &Result{Records: records, Enriched: apiNames != nil, Report: rep}, nil
}

func (e *Engine) enrichmentIndex(in Input) enrichmentIndex {
	if len(in.Enrichment) == 0 {
		return nil
	}
	if e.cfg.Strategy == StrategyExact {
		return indexByTrack(in.Enrichment)
	}
	trackIDs := in.TrackIDs
	if trackIDs == nil {
		trackIDs = make([]string, len(in.Enrichment))
		for i, r := range in.Enrichment {
			trackIDs[i] = r.TrackID
		}
	}
	idx, ok := indexByPosition(in.Enrichment, trackIDs)
	if !ok {
		return nil
	}
	return idx
}
