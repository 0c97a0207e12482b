// Package pipeline runs the chart ETL end to end: extract and clean the
// three datasets, reconcile them, load the merged table into the warehouse
// and publish it.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/chart-etl/internal/db"
	"github.com/sells-group/chart-etl/internal/extract"
	"github.com/sells-group/chart-etl/internal/fetcher"
	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/reconcile"
	"github.com/sells-group/chart-etl/internal/share"
	"github.com/sells-group/chart-etl/internal/transform"
	"github.com/sells-group/chart-etl/internal/warehouse"
)

// RunLog records pipeline runs.
type RunLog interface {
	CreateRun(ctx context.Context, strategy string) (*model.Run, error)
	FinishRun(ctx context.Context, run *model.Run) error
}

// Enricher resolves artist enrichment for track ids.
type Enricher interface {
	Extract(ctx context.Context, trackIDs []string) (model.Frame, extract.Source, error)
}

// Options configures one pipeline run.
type Options struct {
	// TracksLocation is the tracks file path or URL.
	TracksLocation string
	// AwardsCSV, when set, is seeded into AwardsTable before extraction.
	AwardsCSV   string
	AwardsTable db.Table
	MergedTable db.Table
	Mode        warehouse.Mode
	// Schemas are created before anything is loaded. Empty skips
	// migrations.
	Schemas     []string
	ShareTitle  string
	ShareFormat share.Format
}

// Deps holds the collaborators of a Pipeline. Enricher and Uploader are
// optional.
type Deps struct {
	Runs      RunLog
	Warehouse db.Pool
	Loader    extract.TableLoader
	Fetcher   fetcher.Fetcher
	Enricher  Enricher
	Engine    *reconcile.Engine
	Rules     *transform.Rules
	Uploader  share.Uploader
}

// Pipeline orchestrates a run.
type Pipeline struct {
	opts Options
	deps Deps
}

// New creates a Pipeline. Nil Rules select the default rules.
func New(opts Options, deps Deps) *Pipeline {
	if deps.Rules == nil {
		deps.Rules = transform.DefaultRules()
	}
	if deps.Loader == nil && deps.Warehouse != nil {
		deps.Loader = warehouse.NewLoader(deps.Warehouse)
	}
	return &Pipeline{opts: opts, deps: deps}
}

// Result is the outcome of a successful run.
type Result struct {
	Run              *model.Run
	Report           reconcile.Report
	Merged           model.Frame
	Loaded           int64
	EnrichmentSource extract.Source
	SharedAs         string
}

// cleaned holds the stage outputs handed to reconciliation.
type cleaned struct {
	tracks     []model.Track
	awards     []model.Award
	enrichment []model.Enrichment
	source     extract.Source
}

// Run executes every stage. Any stage error aborts the run before the
// merged table is written; the run is recorded as failed either way.
func (p *Pipeline) Run(ctx context.Context) (result *Result, err error) {
	strategy := string(p.deps.Engine.Strategy())
	run, err := p.deps.Runs.CreateRun(ctx, strategy)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("strategy", strategy))
	log.Info("pipeline: starting run")

	defer func() {
		ended := time.Now().UTC()
		run.EndedAt = &ended
		if err != nil {
			run.Status = model.RunStatusFailed
			run.Error = err.Error()
		} else {
			run.Status = model.RunStatusComplete
		}
		if finishErr := p.deps.Runs.FinishRun(context.WithoutCancel(ctx), run); finishErr != nil {
			log.Warn("pipeline: failed to record run", zap.Error(finishErr))
		}
		log.Info("pipeline: run finished",
			zap.String("status", string(run.Status)),
			zap.Duration("elapsed", ended.Sub(run.StartedAt)),
		)
	}()

	if len(p.opts.Schemas) > 0 {
		if err = stage(log, "migrate", func() error {
			return warehouse.Migrate(ctx, p.deps.Warehouse, p.opts.Schemas...)
		}); err != nil {
			return nil, err
		}
	}

	if p.opts.AwardsCSV != "" {
		if err = stage(log, "seed_awards", func() error {
			_, seedErr := extract.SeedAwards(ctx, p.deps.Fetcher, p.deps.Loader, p.opts.AwardsCSV, p.opts.AwardsTable)
			return seedErr
		}); err != nil {
			return nil, err
		}
	}

	c, err := p.extractAndClean(ctx, log)
	if err != nil {
		return nil, err
	}
	run.Counts = model.RunCounts{Tracks: len(c.tracks), Awards: len(c.awards), Enrichment: len(c.enrichment)}

	var merged *reconcile.Result
	if err = stage(log, "reconcile", func() error {
		var mergeErr error
		merged, mergeErr = p.deps.Engine.Reconcile(ctx, reconcile.Input{
			Tracks:     c.tracks,
			Awards:     c.awards,
			Enrichment: c.enrichment,
		})
		return mergeErr
	}); err != nil {
		return nil, err
	}
	frame := merged.Frame()
	run.Counts.Merged = len(merged.Records)
	run.Metrics = merged.Report.Metrics()

	result = &Result{Run: run, Report: merged.Report, Merged: frame, EnrichmentSource: c.source}

	if err = stage(log, "load", func() error {
		n, loadErr := p.deps.Loader.Load(ctx, p.opts.MergedTable, frame, p.opts.Mode)
		result.Loaded = n
		return loadErr
	}); err != nil {
		return nil, err
	}

	if p.deps.Uploader != nil {
		if err = stage(log, "share", func() error {
			name, shareErr := share.Publish(ctx, p.deps.Uploader, p.opts.ShareTitle, p.opts.ShareFormat, frame)
			result.SharedAs = name
			return shareErr
		}); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// extractAndClean runs the tracks and awards branches in parallel. Artist
// enrichment follows the tracks branch because it needs the cleaned track
// ids; its failure degrades the run to an unenriched merge.
func (p *Pipeline) extractAndClean(ctx context.Context, log *zap.Logger) (*cleaned, error) {
	var c cleaned
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := stage(log, "tracks", func() error {
			frame, err := extract.Tracks(gCtx, p.deps.Fetcher, p.opts.TracksLocation)
			if err != nil {
				return err
			}
			c.tracks, err = p.deps.Rules.CleanTrackFrame(frame)
			return err
		}); err != nil {
			return err
		}

		if p.deps.Enricher == nil {
			return nil
		}
		enrichErr := stage(log, "enrichment", func() error {
			ids := make([]string, len(c.tracks))
			for i, t := range c.tracks {
				ids[i] = t.TrackID
			}
			frame, source, err := p.deps.Enricher.Extract(gCtx, ids)
			if err != nil {
				return err
			}
			rows, err := transform.CleanEnrichmentFrame(frame)
			if err != nil {
				return err
			}
			c.enrichment, c.source = rows, source
			return nil
		})
		if enrichErr != nil {
			if gCtx.Err() != nil {
				return enrichErr
			}
			log.Warn("pipeline: continuing without enrichment", zap.Error(enrichErr))
		}
		return nil
	})

	g.Go(func() error {
		return stage(log, "awards", func() error {
			frame, err := extract.Awards(gCtx, p.deps.Warehouse, p.opts.AwardsTable)
			if err != nil {
				return err
			}
			c.awards, err = p.deps.Rules.CleanAwardFrame(frame)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &c, nil
}

// stage runs fn and logs its duration and outcome.
func stage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()
	if err != nil {
		log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return eris.Wrapf(err, "pipeline: %s", name)
	}
	log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", duration),
	)
	return nil
}
