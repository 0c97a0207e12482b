package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/pipeline"
	"github.com/sells-group/chart-etl/internal/reconcile"
	"github.com/sells-group/chart-etl/internal/share"
	"github.com/sells-group/chart-etl/internal/warehouse"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full ETL once",
	Long:  "Extracts and cleans tracks, awards and artist enrichment, reconciles them, loads the merged table into the warehouse and shares it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if v, _ := cmd.Flags().GetString("tracks"); v != "" {
			cfg.Sources.TracksCSV = v
		}
		if v, _ := cmd.Flags().GetString("strategy"); v != "" {
			cfg.Reconcile.Strategy = v
		}
		if noEnrich, _ := cmd.Flags().GetBool("no-enrich"); noEnrich {
			cfg.Reconcile.Enrich = false
		}
		if noShare, _ := cmd.Flags().GetBool("no-share"); noShare {
			cfg.Share.Backend = string(share.BackendNone)
		}
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		seed, _ := cmd.Flags().GetBool("seed")
		reportPath, _ := cmd.Flags().GetString("report")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pool, err := warehousePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		engine, err := newEngine(cfg, "")
		if err != nil {
			return err
		}
		uploader, err := newUploader(cfg)
		if err != nil {
			return err
		}
		mode, err := warehouse.ParseMode(cfg.Warehouse.Mode)
		if err != nil {
			return err
		}

		wh := warehouseConfig(cfg)
		f := newFetcher(cfg)
		opts := pipeline.Options{
			TracksLocation: cfg.Sources.TracksCSV,
			AwardsTable:    wh.AwardsSource(),
			MergedTable:    wh.MergedTable(),
			Mode:           mode,
			Schemas:        wh.Schemas(),
			ShareTitle:     cfg.Share.Title,
			ShareFormat:    shareConfig(cfg).Format,
		}
		if seed {
			opts.AwardsCSV = cfg.Sources.AwardsCSV
		}
		deps := pipeline.Deps{
			Runs:      st,
			Warehouse: pool,
			Fetcher:   f,
			Engine:    engine,
		}
		if cfg.Reconcile.Enrich {
			deps.Enricher = newEnricher(cfg, st, f)
		}
		if uploader != nil {
			deps.Uploader = uploader
		}

		res, err := pipeline.New(opts, deps).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		printRunSummary(os.Stdout, res)
		if reportPath != "" {
			if err := writeReport(reportPath, res); err != nil {
				return err
			}
			zap.L().Info("run: report written", zap.String("path", reportPath))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("tracks", "", "tracks file path or URL (overrides sources.tracks_csv)")
	runCmd.Flags().String("strategy", "", "reconciliation strategy: exact or fuzzy (overrides reconcile.strategy)")
	runCmd.Flags().Bool("seed", false, "seed the raw awards table from sources.awards_csv first")
	runCmd.Flags().Bool("no-enrich", false, "skip artist enrichment")
	runCmd.Flags().Bool("no-share", false, "skip publishing the merged table")
	runCmd.Flags().String("report", "", "write the run report as YAML to this path")
	rootCmd.AddCommand(runCmd)
}

// runReport is the YAML shape of --report.
type runReport struct {
	Run              *model.Run       `yaml:"run"`
	Reconciliation   reconcile.Report `yaml:"reconciliation"`
	Loaded           int64            `yaml:"loaded_rows"`
	EnrichmentSource string           `yaml:"enrichment_source,omitempty"`
	SharedAs         string           `yaml:"shared_as,omitempty"`
}

func writeReport(path string, res *pipeline.Result) error {
	data, err := yaml.Marshal(runReport{
		Run:              res.Run,
		Reconciliation:   res.Report,
		Loaded:           res.Loaded,
		EnrichmentSource: string(res.EnrichmentSource),
		SharedAs:         res.SharedAs,
	})
	if err != nil {
		return eris.Wrap(err, "run: encode report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "run: write report %s", path)
	}
	return nil
}

func printRunSummary(w io.Writer, res *pipeline.Result) {
	_, _ = fmt.Fprintf(w, "Run %s %s\n", res.Run.ID, res.Run.Status)
	_, _ = fmt.Fprintf(w, "  tracks=%d awards=%d enrichment=%d merged=%d loaded=%d\n",
		res.Run.Counts.Tracks, res.Run.Counts.Awards, res.Run.Counts.Enrichment, res.Run.Counts.Merged, res.Loaded)
	_, _ = fmt.Fprintf(w, "  strategy=%s matched=%d (%.1f%%)\n",
		res.Report.Strategy, res.Report.MatchedRows, res.Report.MatchRate*100)
	if res.Report.Enriched {
		_, _ = fmt.Fprintf(w, "  enrichment=%s follower_coverage=%.1f%%\n", res.EnrichmentSource, res.Report.FollowerCoverage*100)
	}
	if res.SharedAs != "" {
		_, _ = fmt.Fprintf(w, "  shared as %s\n", res.SharedAs)
	}
}
