package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/chart-etl/internal/reconcile"
	"github.com/sells-group/chart-etl/internal/transform"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Reconcile cleaned datasets",
	Long:  "Reads cleaned tracks, awards and optional enrichment (JSON or CSV) and writes the merged table as a JSON array.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		tracksPath, _ := cmd.Flags().GetString("tracks")
		awardsPath, _ := cmd.Flags().GetString("awards")
		enrichmentPath, _ := cmd.Flags().GetString("enrichment")
		out, _ := cmd.Flags().GetString("out")
		strategy, _ := cmd.Flags().GetString("strategy")

		engine, err := newEngine(cfg, strategy)
		if err != nil {
			return err
		}

		in, err := readMergeInput(ctx, tracksPath, awardsPath, enrichmentPath)
		if err != nil {
			return err
		}
		res, err := engine.Reconcile(ctx, in)
		if err != nil {
			return eris.Wrap(err, "merge")
		}
		return writeIntermediate(out, res.Frame())
	},
}

func init() {
	mergeCmd.Flags().String("tracks", "", "cleaned tracks file")
	mergeCmd.Flags().String("awards", "", "cleaned awards file")
	mergeCmd.Flags().String("enrichment", "", "cleaned enrichment file (optional)")
	mergeCmd.Flags().String("out", "-", "output JSON file, - for stdout")
	mergeCmd.Flags().String("strategy", "", "exact or fuzzy (overrides reconcile.strategy)")
	_ = mergeCmd.MarkFlagRequired("tracks")
	_ = mergeCmd.MarkFlagRequired("awards")
	rootCmd.AddCommand(mergeCmd)
}

// readMergeInput reads and binds the merge inputs concurrently. Inputs
// pass through their cleaners, which leave cleaned data unchanged.
func readMergeInput(ctx context.Context, tracksPath, awardsPath, enrichmentPath string) (reconcile.Input, error) {
	var in reconcile.Input
	rules := transform.DefaultRules()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := readIntermediate(ctx, transform.StageTracks, tracksPath)
		if err != nil {
			return err
		}
		in.Tracks, err = rules.CleanTrackFrame(f)
		return err
	})
	g.Go(func() error {
		f, err := readIntermediate(ctx, transform.StageAwards, awardsPath)
		if err != nil {
			return err
		}
		in.Awards, err = rules.CleanAwardFrame(f)
		return err
	})
	if enrichmentPath != "" {
		g.Go(func() error {
			f, err := readIntermediate(ctx, transform.StageEnrichment, enrichmentPath)
			if err != nil {
				return err
			}
			in.Enrichment, err = transform.CleanEnrichmentFrame(f)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return reconcile.Input{}, err
	}
	return in, nil
}
